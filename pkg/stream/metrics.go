package stream

import (
	"math"
	"sort"
	"time"
)

// sampleWindowSize bounds the rolling sample windows so percentile and
// jitter math always operates on recent behavior with fixed memory.
const sampleWindowSize = 100

// window is a fixed-capacity FIFO ring of duration samples. Once full, each
// push evicts the oldest sample. The backing slice is allocated once and
// reused for the life of the processor.
type window struct {
	samples []time.Duration
	next    int
	full    bool
}

func newWindow(capacity int) window {
	return window{samples: make([]time.Duration, 0, capacity)}
}

func (w *window) push(d time.Duration) {
	if !w.full && len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, d)
		if len(w.samples) == cap(w.samples) {
			w.full = true
		}
		return
	}
	w.full = true
	w.samples[w.next] = d
	w.next = (w.next + 1) % cap(w.samples)
}

func (w *window) len() int {
	return len(w.samples)
}

// values returns the samples in unspecified order. Callers sort or average;
// arrival order does not matter for any derived statistic.
func (w *window) values() []time.Duration {
	return w.samples
}

func (w *window) reset() {
	w.samples = w.samples[:0]
	w.next = 0
	w.full = false
}

func (w *window) mean() time.Duration {
	if len(w.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range w.samples {
		total += s
	}
	return total / time.Duration(len(w.samples))
}

// metricsState holds cumulative counters plus the bounded rolling windows.
type metricsState struct {
	chunks             int64
	bytes              int64
	batchFlushes       int64
	backpressureEvents int64
	chunkTimeouts      int64

	ttfc    time.Duration
	hasTTFC bool

	sessionStart time.Time

	processing   window
	interarrival window
}

func newMetricsState() metricsState {
	return metricsState{
		processing:   newWindow(sampleWindowSize),
		interarrival: newWindow(sampleWindowSize),
	}
}

// MetricsSnapshot is a point-in-time view of the processor's telemetry.
// Percentiles and jitter are computed over the bounded rolling window of
// processing-time samples, not the full history.
type MetricsSnapshot struct {
	Chunks int64
	Bytes  int64

	AvgProcessing time.Duration
	MinProcessing time.Duration
	MaxProcessing time.Duration

	TimeToFirstChunk time.Duration
	Elapsed          time.Duration

	ChunksPerSec float64
	BytesPerSec  float64

	BatchFlushes       int64
	BackpressureEvents int64
	ChunkTimeouts      int64

	P50Processing time.Duration
	P95Processing time.Duration
	P99Processing time.Duration

	// Jitter is the population standard deviation of the processing-time
	// samples.
	Jitter time.Duration

	AvgInterarrival time.Duration
}

// snapshot derives all on-demand statistics. Zero samples never error: every
// derived value degrades to zero.
func (m *metricsState) snapshot(now time.Time) MetricsSnapshot {
	snap := MetricsSnapshot{
		Chunks:             m.chunks,
		Bytes:              m.bytes,
		BatchFlushes:       m.batchFlushes,
		BackpressureEvents: m.backpressureEvents,
		ChunkTimeouts:      m.chunkTimeouts,
		TimeToFirstChunk:   m.ttfc,
		AvgInterarrival:    m.interarrival.mean(),
	}

	if !m.sessionStart.IsZero() {
		snap.Elapsed = now.Sub(m.sessionStart)
	}
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		snap.ChunksPerSec = float64(m.chunks) / secs
		snap.BytesPerSec = float64(m.bytes) / secs
	}

	samples := m.processing.values()
	if len(samples) == 0 {
		return snap
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	snap.MinProcessing = sorted[0]
	snap.MaxProcessing = sorted[len(sorted)-1]
	snap.AvgProcessing = m.processing.mean()
	snap.P50Processing = percentile(sorted, 50)
	snap.P95Processing = percentile(sorted, 95)
	snap.P99Processing = percentile(sorted, 99)
	snap.Jitter = stddev(sorted, snap.AvgProcessing)

	return snap
}

// percentile computes the nearest-rank percentile of an ascending-sorted
// sample set: index = ceil(p/100 × n) − 1, clamped to the first element.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// stddev computes the population standard deviation around mean.
func stddev(samples []time.Duration, mean time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		diff := float64(s - mean)
		sumSq += diff * diff
	}
	return time.Duration(math.Sqrt(sumSq / float64(len(samples))))
}

func (m *metricsState) reset() {
	m.chunks = 0
	m.bytes = 0
	m.batchFlushes = 0
	m.backpressureEvents = 0
	m.chunkTimeouts = 0
	m.ttfc = 0
	m.hasTTFC = false
	m.sessionStart = time.Time{}
	m.processing.reset()
	m.interarrival.reset()
}
