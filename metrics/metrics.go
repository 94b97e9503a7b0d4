// Package metrics instruments the request/response transport. Backends
// implement Counter and Histogram; package prometheus provides one.
package metrics

// Counter describes a metric that accumulates values monotonically.
// An example of a counter is the number of issued requests.
type Counter interface {
	With(labelValues ...string) Counter
	Add(delta float64)
}

// Histogram describes a metric that takes repeated observations of the same
// kind of thing, and produces a statistical summary of those observations.
// An example of a histogram is request latencies.
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}
