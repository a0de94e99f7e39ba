package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus holds pull-based collectors scraped from /metrics. They cover the
// background jobs, which run outside any request span.
type Prometheus struct {
	sweepRuns       *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	overdueInvoices prometheus.Gauge
}

func NewPrometheus(cfg Config) *Prometheus {
	return newPrometheus(prometheus.DefaultRegisterer, cfg)
}

func newPrometheus(registerer prometheus.Registerer, cfg Config) *Prometheus {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "parcella"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	return &Prometheus{
		sweepRuns: registerOrReuse(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parcella_overdue_sweep_runs_total",
			Help:        "Overdue invoice sweeps by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"})),
		sweepDuration: registerOrReuse(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "parcella_overdue_sweep_duration_seconds",
			Help:        "Overdue invoice sweep latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		})),
		overdueInvoices: registerOrReuse(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "parcella_overdue_invoices",
			Help:        "Issued invoices past their due date at the last sweep.",
			ConstLabels: constLabels,
		})),
	}
}

// registerOrReuse returns the collector already registered under the same
// descriptor, which happens when several fx apps share a process in tests.
func registerOrReuse[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

const (
	SweepOutcomeOK      = "ok"
	SweepOutcomeError   = "error"
	SweepOutcomeSkipped = "skipped"
)

func (p *Prometheus) ObserveSweep(outcome string, seconds float64, overdue int) {
	if p == nil {
		return
	}
	p.sweepRuns.WithLabelValues(outcome).Inc()
	if outcome == SweepOutcomeOK {
		p.sweepDuration.Observe(seconds)
		p.overdueInvoices.Set(float64(overdue))
	}
}
