package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesCreated    metric.Int64Counter
	fiscalRejected     metric.Int64Counter
	stampDutyApplied   metric.Int64Counter
	planLimitReached   metric.Int64Counter
	loginRateLimited   metric.Int64Counter
	ticketsOpened      metric.Int64Counter
	invoiceTotalAmount metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New registers the domain instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "parcella"
	}
	meter := provider.Meter(name)

	var m Metrics
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.invoicesCreated, "parcella_invoices_created_total", "Invoices issued."},
		{&m.fiscalRejected, "parcella_fiscal_rejected_total", "Fiscal calculations rejected by validation."},
		{&m.stampDutyApplied, "parcella_fiscal_stamp_duty_total", "Invoices carrying the 2 EUR stamp duty."},
		{&m.planLimitReached, "parcella_plan_limit_reached_total", "Creations refused by the subscription plan."},
		{&m.loginRateLimited, "parcella_login_rate_limited_total", "Login attempts refused by the rate limiter."},
		{&m.ticketsOpened, "parcella_support_tickets_opened_total", "Support tickets opened."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	// 77.47 is the amount above which the stamp duty applies
	total, err := meter.Float64Histogram("parcella_invoice_total_eur",
		metric.WithDescription("Invoice totals."),
		metric.WithUnit("EUR"),
		metric.WithExplicitBucketBoundaries(25, 50, 77.47, 100, 150, 250, 500, 1000))
	if err != nil {
		return nil, fmt.Errorf("metric parcella_invoice_total_eur: %w", err)
	}
	m.invoiceTotalAmount = total
	return &m, nil
}

// RecordInvoiceCreated counts an issued invoice and observes its total.
func (m *Metrics) RecordInvoiceCreated(ctx context.Context, regime string, withStampDuty bool, total float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("regime", strings.TrimSpace(regime)))
	m.invoicesCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.invoiceTotalAmount.Record(ctx, total, metric.WithAttributes(attrs...))
	if withStampDuty {
		m.stampDutyApplied.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordFiscalRejected counts calculator validation failures by reason.
func (m *Metrics) RecordFiscalRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.fiscalRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPlanLimitReached(ctx context.Context, tier, resource string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("plan_tier", strings.TrimSpace(tier)),
		attribute.String("resource", strings.TrimSpace(resource)),
	)
	m.planLimitReached.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordLoginRateLimited(ctx context.Context) {
	if m == nil {
		return
	}
	m.loginRateLimited.Add(ctx, 1)
}

func (m *Metrics) RecordTicketOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.ticketsOpened.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf", "":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"regime":      {},
	"plan_tier":   {},
	"resource":    {},
	"reason":      {},
	"route":       {},
	"method":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
