package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPatientData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/patients/:id"),
		attribute.String("patient.fiscal_code", "RSSMRA80A01H501U"),
		attribute.Int("http.status_code", 200),
	)
	assert.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("patient.fiscal_code"), attr.Key)
	}
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	err := SafeError(errors.New("insert failed\nINSERT INTO patients VALUES ('Mario')"))
	assert.EqualError(t, err, "insert failed")
}

func TestNormalizeRatio(t *testing.T) {
	assert.Equal(t, 0.0, normalizeRatio(-1))
	assert.Equal(t, 1.0, normalizeRatio(3))
	assert.Equal(t, 0.25, normalizeRatio(0.25))
}
