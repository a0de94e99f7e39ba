package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	r := gin.New()
	r.Use(GinMiddleware("/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/invoices/:id/pay", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/broken", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})
	return r, recorder
}

func attributeMap(attrs []attribute.KeyValue) map[attribute.Key]string {
	out := make(map[attribute.Key]string, len(attrs))
	for _, attr := range attrs {
		out[attr.Key] = attr.Value.Emit()
	}
	return out
}

func TestGinMiddlewareNamesSpanByRoute(t *testing.T) {
	r, recorder := newRecordedEngine(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/invoices/42/pay", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /api/invoices/:id/pay", spans[0].Name())

	attrs := attributeMap(spans[0].Attributes())
	assert.Equal(t, "invoices", attrs["parcella.resource"])
	assert.Equal(t, "42", attrs["parcella.resource_id"])
	assert.Equal(t, "200", attrs["http.status_code"])
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestGinMiddlewareSkipsProbes(t *testing.T) {
	r, recorder := newRecordedEngine(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, recorder.Ended())
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	r, recorder := newRecordedEngine(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/broken", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)
}

func TestResourceFromRoute(t *testing.T) {
	assert.Equal(t, "invoices", resourceFromRoute("/api/invoices/:id/pay"))
	assert.Equal(t, "tickets", resourceFromRoute("/api/admin/tickets/:id"))
	assert.Equal(t, "patients", resourceFromRoute("/api/patients"))
}
