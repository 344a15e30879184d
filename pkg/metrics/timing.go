// Package metrics provides performance instrumentation for the viewport
// engine.
//
// This package enables visibility into performance characteristics:
// - Timing metrics for hot paths (culling, render tree build, hit testing)
// - Frame time distribution (p50/p95) over a sliding window
// - Per-frame primitive counts
//
// Metrics are collected in-memory with atomic operations for thread-safety.
// Collection is enabled by default but can be disabled via TM_METRICS=0.
//
// Usage:
//
//	func expensiveOperation() {
//	    defer metrics.Timer(metrics.Cull)()
//	    // ... operation code
//	}
package metrics

import (
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// enabled controls whether metrics are collected.
// Defaults to true unless TM_METRICS=0 is set.
var enabled = os.Getenv("TM_METRICS") != "0"

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled = e
}

// TimingMetric tracks timing statistics for a named operation.
// All methods are thread-safe using atomic operations.
type TimingMetric struct {
	name    string
	count   int64
	totalNs int64
	maxNs   int64
	minNs   int64 // 0 means not set
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record records a single timing measurement.
// Thread-safe via atomic operations.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled {
		return
	}
	ns := d.Nanoseconds()

	atomic.AddInt64(&m.count, 1)
	atomic.AddInt64(&m.totalNs, ns)

	for {
		old := atomic.LoadInt64(&m.maxNs)
		if ns <= old || atomic.CompareAndSwapInt64(&m.maxNs, old, ns) {
			break
		}
	}

	for {
		old := atomic.LoadInt64(&m.minNs)
		if old != 0 && ns >= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.minNs, old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string {
	return m.name
}

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 {
	return atomic.LoadInt64(&m.count)
}

// TotalNs returns the total time in nanoseconds.
func (m *TimingMetric) TotalNs() int64 {
	return atomic.LoadInt64(&m.totalNs)
}

// MaxNs returns the maximum recorded time in nanoseconds.
func (m *TimingMetric) MaxNs() int64 {
	return atomic.LoadInt64(&m.maxNs)
}

// MinNs returns the minimum recorded time in nanoseconds.
// Returns 0 if no measurements have been recorded.
func (m *TimingMetric) MinNs() int64 {
	return atomic.LoadInt64(&m.minNs)
}

// AvgNs returns the average time in nanoseconds.
// Returns 0 if no measurements have been recorded.
func (m *TimingMetric) AvgNs() int64 {
	count := atomic.LoadInt64(&m.count)
	if count == 0 {
		return 0
	}
	return atomic.LoadInt64(&m.totalNs) / count
}

// Stats returns all timing statistics at once.
func (m *TimingMetric) Stats() TimingStats {
	count := atomic.LoadInt64(&m.count)
	totalNs := atomic.LoadInt64(&m.totalNs)
	maxNs := atomic.LoadInt64(&m.maxNs)
	minNs := atomic.LoadInt64(&m.minNs)

	var avgNs int64
	if count > 0 {
		avgNs = totalNs / count
	}

	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(totalNs) / 1e6,
		AvgMs:   float64(avgNs) / 1e6,
		MaxMs:   float64(maxNs) / 1e6,
		MinMs:   float64(minNs) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	atomic.StoreInt64(&m.count, 0)
	atomic.StoreInt64(&m.totalNs, 0)
	atomic.StoreInt64(&m.maxNs, 0)
	atomic.StoreInt64(&m.minNs, 0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records elapsed time when called.
// Use with defer for automatic timing:
//
//	func myFunc() {
//	    defer metrics.Timer(metrics.Cull)()
//	    // ... function body
//	}
func Timer(m *TimingMetric) func() {
	if !enabled || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// TimerWithCallback returns a function that records elapsed time
// and also calls the provided callback with the duration.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !enabled || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// Global timing metrics for the frame pipeline.
var (
	GraphLoad    = newTimingMetric("graph_load")
	IndexBuild   = newTimingMetric("index_build")
	Cull         = newTimingMetric("cull")
	RenderBuild  = newTimingMetric("render_build")
	HitTest      = newTimingMetric("hit_test")
	Highlight    = newTimingMetric("highlight")
	FrameTotal   = newTimingMetric("frame_total")
	ExportRender = newTimingMetric("export_render")
	JSONParsing  = newTimingMetric("json_parsing")
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		GraphLoad,
		IndexBuild,
		Cull,
		RenderBuild,
		HitTest,
		Highlight,
		FrameTotal,
		ExportRender,
		JSONParsing,
	}
}

// ResetAll resets all timing metrics and the frame window.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	Frames.Reset()
}

// AllTimingStats returns stats for all timing metrics with data.
func AllTimingStats() []TimingStats {
	metrics := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(metrics))
	for _, m := range metrics {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// frameWindowSize bounds the sliding window used for percentiles; at 60fps
// this covers roughly the last four seconds.
const frameWindowSize = 240

// FrameWindow keeps a ring of recent frame durations and computes
// percentiles over it. Guarded by a mutex rather than atomics: one write
// per frame is nowhere near contention territory.
type FrameWindow struct {
	mu    sync.Mutex
	ring  [frameWindowSize]float64 // milliseconds
	n     int
	next  int
	total int64
}

// Frames is the global frame-time window.
var Frames = &FrameWindow{}

// Record adds one frame duration to the window.
func (w *FrameWindow) Record(d time.Duration) {
	if !enabled {
		return
	}
	w.mu.Lock()
	w.ring[w.next] = float64(d.Nanoseconds()) / 1e6
	w.next = (w.next + 1) % frameWindowSize
	if w.n < frameWindowSize {
		w.n++
	}
	w.total++
	w.mu.Unlock()
}

// TotalFrames returns the number of frames recorded since the last Reset.
func (w *FrameWindow) TotalFrames() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Reset clears the window.
func (w *FrameWindow) Reset() {
	w.mu.Lock()
	w.n = 0
	w.next = 0
	w.total = 0
	w.mu.Unlock()
}

// FrameStats summarizes the frame-time window in milliseconds.
type FrameStats struct {
	Frames int64   `json:"frames"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	MeanMs float64 `json:"mean_ms"`
}

// Stats computes p50/p95/mean over the window. Zero value when empty.
func (w *FrameWindow) Stats() FrameStats {
	w.mu.Lock()
	samples := make([]float64, w.n)
	copy(samples, w.ring[:w.n])
	total := w.total
	w.mu.Unlock()

	if len(samples) == 0 {
		return FrameStats{}
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return FrameStats{
		Frames: total,
		P50Ms:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95Ms:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		MeanMs: stat.Mean(samples, nil),
	}
}
