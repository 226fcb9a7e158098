package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"onfawiki/internal/wiki"
)

// MetricsNamespace prefixes every wiki metric.
const MetricsNamespace = "wiki"

// Metrics counts and times backend calls.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics registers the store metrics with reg, or the default registerer
// when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Document store calls by operation and result",
		}, []string{"op", "result"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Document store call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// Instrumented records metrics around another backend.
type Instrumented struct {
	next    Backend
	metrics *Metrics
}

// Instrument wraps b.
func Instrument(b Backend, m *Metrics) *Instrumented {
	return &Instrumented{next: b, metrics: m}
}

func (i *Instrumented) Kind() string { return i.next.Kind() }

func (i *Instrumented) Close() error { return i.next.Close() }

func (i *Instrumented) Fetch(ctx context.Context) (wiki.Document, error) {
	start := time.Now()
	doc, err := i.next.Fetch(ctx)
	i.observe("fetch", start, err)
	return doc, err
}

func (i *Instrumented) Replace(ctx context.Context, doc wiki.Document) error {
	start := time.Now()
	err := i.next.Replace(ctx, doc)
	i.observe("replace", start, err)
	return err
}

func (i *Instrumented) UpdatedAt(ctx context.Context) (time.Time, error) {
	start := time.Now()
	at, err := i.next.UpdatedAt(ctx)
	i.observe("updated_at", start, err)
	return at, err
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	i.metrics.Operations.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, wiki.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
