// Package generic implements the metrics interfaces in memory, for callers
// that want request statistics without running a metrics system. Every
// distinct set of label values passed to With is a series of its own.
package generic

import (
	"strings"
	"sync"

	"github.com/VividCortex/gohistogram"

	"github.com/matteocacciola/cheshirecat-go-sdk/metrics"
)

// DefaultBuckets is the number of centroids each histogram series keeps.
const DefaultBuckets = 50

func key(lvs []string) string { return strings.Join(lvs, "\x00") }

func with(lvs []string, labelValues ...string) []string {
	if len(labelValues)%2 != 0 {
		labelValues = append(labelValues, "unknown")
	}
	return append(lvs[:len(lvs):len(lvs)], labelValues...)
}

// Counter is an in-memory counter.
type Counter struct {
	Name string
	lvs  []string
	set  *counterSet
}

type counterSet struct {
	mtx    sync.Mutex
	values map[string]float64
}

// NewCounter returns a Counter with no label values.
func NewCounter(name string) *Counter {
	return &Counter{Name: name, set: &counterSet{values: map[string]float64{}}}
}

// With implements metrics.Counter. The returned Counter shares its values
// with c.
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{Name: c.Name, lvs: with(c.lvs, labelValues...), set: c.set}
}

// Add implements metrics.Counter.
func (c *Counter) Add(delta float64) {
	c.set.mtx.Lock()
	defer c.set.mtx.Unlock()
	c.set.values[key(c.lvs)] += delta
}

// Value returns the value of the series named by c's label values.
func (c *Counter) Value() float64 {
	c.set.mtx.Lock()
	defer c.set.mtx.Unlock()
	return c.set.values[key(c.lvs)]
}

// Total returns the sum of every series.
func (c *Counter) Total() float64 {
	c.set.mtx.Lock()
	defer c.set.mtx.Unlock()
	var sum float64
	for _, v := range c.set.values {
		sum += v
	}
	return sum
}

// Histogram is an in-memory histogram of approximate quantiles, backed by a
// gohistogram.NumericHistogram per series.
type Histogram struct {
	Name string
	lvs  []string
	set  *histogramSet
}

type histogramSet struct {
	mtx     sync.Mutex
	buckets int
	series  map[string]*gohistogram.NumericHistogram
	all     *gohistogram.NumericHistogram
}

// NewHistogram returns a Histogram keeping buckets centroids per series.
func NewHistogram(name string, buckets int) *Histogram {
	return &Histogram{Name: name, set: &histogramSet{
		buckets: buckets,
		series:  map[string]*gohistogram.NumericHistogram{},
		all:     gohistogram.NewHistogram(buckets),
	}}
}

// With implements metrics.Histogram. The returned Histogram shares its
// observations with h.
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{Name: h.Name, lvs: with(h.lvs, labelValues...), set: h.set}
}

// Observe implements metrics.Histogram.
func (h *Histogram) Observe(value float64) {
	h.set.mtx.Lock()
	defer h.set.mtx.Unlock()
	k := key(h.lvs)
	s, ok := h.set.series[k]
	if !ok {
		s = gohistogram.NewHistogram(h.set.buckets)
		h.set.series[k] = s
	}
	s.Add(value)
	h.set.all.Add(value)
}

// Quantile returns the approximate q quantile of the series named by h's
// label values, or 0 when it has no observations.
func (h *Histogram) Quantile(q float64) float64 {
	h.set.mtx.Lock()
	defer h.set.mtx.Unlock()
	s, ok := h.set.series[key(h.lvs)]
	if !ok {
		return 0
	}
	return s.Quantile(q)
}

// Count returns the number of observations of every series.
func (h *Histogram) Count() float64 {
	h.set.mtx.Lock()
	defer h.set.mtx.Unlock()
	return h.set.all.Count()
}

// Overall returns the approximate q quantile of every observation,
// whatever its series.
func (h *Histogram) Overall(q float64) float64 {
	h.set.mtx.Lock()
	defer h.set.mtx.Unlock()
	if h.set.all.Count() == 0 {
		return 0
	}
	return h.set.all.Quantile(q)
}

// Instrumentation is the pair of in-memory metrics metrics.Instrument takes.
type Instrumentation struct {
	Requests *Counter
	Duration *Histogram
}

// NewInstrumentation returns request metrics kept in memory.
func NewInstrumentation() Instrumentation {
	return Instrumentation{
		Requests: NewCounter("requests_total"),
		Duration: NewHistogram("request_duration_seconds", DefaultBuckets),
	}
}
