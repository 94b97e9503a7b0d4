// Package prometheus provides Prometheus implementations for the metrics
// package.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matteocacciola/cheshirecat-go-sdk/metrics"
)

// Counter implements metrics.Counter, via a Prometheus CounterVec.
type Counter struct {
	cv  *prometheus.CounterVec
	lvs labelValues
}

// NewCounterFrom constructs and registers a Prometheus CounterVec with reg,
// and returns a usable Counter object.
func NewCounterFrom(reg prometheus.Registerer, opts prometheus.CounterOpts, labelNames []string) *Counter {
	cv := prometheus.NewCounterVec(opts, labelNames)
	reg.MustRegister(cv)
	return NewCounter(cv)
}

// NewCounter wraps the CounterVec and returns a usable Counter object.
func NewCounter(cv *prometheus.CounterVec) *Counter {
	return &Counter{cv: cv}
}

// With implements metrics.Counter.
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{
		cv:  c.cv,
		lvs: c.lvs.with(labelValues...),
	}
}

// Add implements metrics.Counter.
func (c *Counter) Add(delta float64) {
	c.cv.With(c.lvs.labels()).Add(delta)
}

// Histogram implements metrics.Histogram via a Prometheus HistogramVec.
type Histogram struct {
	hv  *prometheus.HistogramVec
	lvs labelValues
}

// NewHistogramFrom constructs and registers a Prometheus HistogramVec with
// reg, and returns a usable Histogram object.
func NewHistogramFrom(reg prometheus.Registerer, opts prometheus.HistogramOpts, labelNames []string) *Histogram {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	reg.MustRegister(hv)
	return NewHistogram(hv)
}

// NewHistogram wraps the HistogramVec and returns a usable Histogram object.
func NewHistogram(hv *prometheus.HistogramVec) *Histogram {
	return &Histogram{hv: hv}
}

// With implements metrics.Histogram.
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{
		hv:  h.hv,
		lvs: h.lvs.with(labelValues...),
	}
}

// Observe implements metrics.Histogram.
func (h *Histogram) Observe(value float64) {
	h.hv.With(h.lvs.labels()).Observe(value)
}

// Instrumentation is the pair of metrics registered by NewInstrumentation.
type Instrumentation struct {
	Requests *Counter
	Duration *Histogram
}

// NewInstrumentation registers a request counter and a latency histogram
// under namespace with reg, labeled with metrics.LabelNames.
func NewInstrumentation(reg prometheus.Registerer, namespace string) Instrumentation {
	return Instrumentation{
		Requests: NewCounterFrom(reg, prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Number of requests issued to the backend.",
		}, metrics.LabelNames),
		Duration: NewHistogramFrom(reg, prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Time spent on requests to the backend.",
			Buckets:   prometheus.DefBuckets,
		}, metrics.LabelNames),
	}
}

// labelValues is a flat list of alternating label names and values.
type labelValues []string

func (lvs labelValues) with(kvs ...string) labelValues {
	if len(kvs)%2 != 0 {
		kvs = append(kvs, "unknown")
	}
	out := make(labelValues, 0, len(lvs)+len(kvs))
	out = append(out, lvs...)
	return append(out, kvs...)
}

func (lvs labelValues) labels() prometheus.Labels {
	labels := prometheus.Labels{}
	for i := 0; i < len(lvs); i += 2 {
		labels[lvs[i]] = lvs[i+1]
	}
	return labels
}
