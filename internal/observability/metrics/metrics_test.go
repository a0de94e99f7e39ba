package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("regime", "RF19"),
		attribute.String("patient_id", "456"),
		attribute.String("reason", "invalid_amount"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("regime"))
	assert.Contains(t, keys, attribute.Key("reason"))
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "parcella"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordInvoiceCreated(t.Context(), "RF19", true, 83.6)
		m.RecordFiscalRejected(t.Context(), "invalid_amount")
	})

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordLoginRateLimited(t.Context()) })
}

func TestObserveSweep(t *testing.T) {
	registry := prometheus.NewRegistry()
	p := newPrometheus(registry, Config{ServiceName: "parcella", Environment: "test"})

	p.ObserveSweep(SweepOutcomeOK, 0.2, 3)
	p.ObserveSweep(SweepOutcomeSkipped, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.sweepRuns.WithLabelValues(SweepOutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sweepRuns.WithLabelValues(SweepOutcomeSkipped)))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.overdueInvoices))
}

func TestRecordInvoiceCreatedExportsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	m, err := New(Config{}, provider)
	require.NoError(t, err)
	m.RecordInvoiceCreated(t.Context(), "RF19", true, 104)
	m.RecordInvoiceCreated(t.Context(), "RF19", false, 71.4)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]int64{}
	for _, inst := range rm.ScopeMetrics[0].Metrics {
		if sum, ok := inst.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				sums[inst.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), sums["parcella_invoices_created_total"])
	assert.Equal(t, int64(1), sums["parcella_fiscal_stamp_duty_total"])
}
