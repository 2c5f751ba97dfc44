// Package stream implements the delta-stream processing core: it consumes
// model output deltas one at a time and turns them into discrete renderable
// events while enforcing flow control and liveness.
//
// One Processor serves one model response at a time. The caller pumps an
// external asynchronous chunk stream and feeds each delta to ProcessDelta;
// between calls it polls ShouldRender / Drain on its own render cadence. The
// processor performs no I/O and spawns no goroutines of its own — the single
// internal concurrency concern is the chunk-timeout timer callback, which is
// guarded by a mutex and a timer generation counter.
//
// The processor is not safe for concurrent calls from multiple goroutines;
// hosts must confine one instance to one goroutine. That is the documented
// contract, not an implementation detail.
package stream

import (
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/reel/pkg/llm"
)

// Processor ingests deltas and produces events, applying micro-batching,
// backpressure, adaptive render throttling, per-chunk timeout supervision,
// and latency/throughput telemetry.
type Processor struct {
	cfg Config

	// mu guards all mutable state below. Calls are expected to be
	// serialized by the host; the lock exists because the timeout timer
	// callback fires on its own goroutine.
	mu sync.Mutex

	// Raw and sanitized accumulation buffers. Parts are appended per
	// fragment; the joined string is recomputed lazily on read and cached
	// until the next append (dirty bit).
	rawParts  []string
	rawCache  string
	rawDirty  bool
	sanParts  []string
	sanCache  string
	sanDirty  bool

	// Tool-call records keyed by delta index, with explicit first-seen
	// ordering — no reliance on map iteration order.
	calls     map[int]*toolCallState
	callOrder []int

	batch pendingBatch

	// Backpressure queue. Also receives timeout error events.
	pending       []Event
	backpressured bool

	// Round timing.
	roundStarted   bool
	lastArrival    time.Time
	lastFragmentAt time.Time
	fragmentCount  int

	// Timeout supervisor.
	timer    *time.Timer
	timerGen uint64

	metrics  metricsState
	throttle throttleState

	// now is swapped in tests to control timing decisions.
	now func() time.Time
}

// NewProcessor creates a processor with the given config. Zero numeric
// fields fall back to DefaultConfig values; boolean features follow cfg
// as given (start from DefaultConfig to get them enabled).
func NewProcessor(cfg Config) *Processor {
	cfg = applyDefaults(cfg)

	return &Processor{
		cfg:      cfg,
		calls:    make(map[int]*toolCallState),
		metrics:  newMetricsState(),
		throttle: newThrottleState(cfg),
		now:      time.Now,
	}
}

// ProcessDelta ingests one delta and returns the events it produced, if any.
// An empty delta is a valid no-op that still updates liveness and timing
// state. The only error ever returned is a sanitizer failure, propagated
// unmodified.
func (p *Processor) ProcessDelta(delta llm.Delta) ([]Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.now()

	// A chunk arrived: disarm before touching anything else, re-arm on the
	// way out. The reverse order would leave a window where a stale timer
	// fires against the new round's state.
	p.disarmTimerLocked()
	defer p.armTimerLocked()

	p.recordArrivalLocked(start, !delta.IsEmpty())

	var events []Event

	if delta.Content != "" {
		contentEvents, err := p.ingestContentLocked(delta.Content, start)
		if err != nil {
			return nil, err
		}
		events = append(events, contentEvents...)
	}

	for _, tc := range delta.ToolCalls {
		if ev, ok := p.mergeToolCallDelta(tc); ok {
			events = append(events, ev)
		}
	}

	out := p.gateLocked(events)

	p.metrics.processing.push(p.now().Sub(start))

	return out, nil
}

// Finish ends the round: it flushes any open batch (no implicit flush ever
// happens inside ProcessDelta), runs the commentary tool-call fallback when
// the structured path produced nothing, and emits the terminal done event.
func (p *Processor) Finish() ([]Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.disarmTimerLocked()

	var events []Event

	flushed, err := p.flushBatchLocked()
	if err != nil {
		return nil, err
	}
	if flushed != nil {
		events = append(events, *flushed)
	}

	// The fallback must never run alongside structured calls: that would
	// synthesize duplicates of calls the model already issued properly.
	if p.cfg.ExtractCommentaryTools && len(p.callOrder) == 0 {
		for _, call := range extractCommentaryToolCalls(p.rawContentLocked()) {
			state := &toolCallState{index: call.Index, id: call.ID}
			state.name.WriteString(call.Name)
			state.args.WriteString(call.Arguments)
			p.calls[call.Index] = state
			p.callOrder = append(p.callOrder, call.Index)
			events = append(events, ToolCallEvent(call))
		}
	}

	events = append(events, DoneEvent())

	return p.gateLocked(events), nil
}

// recordArrivalLocked updates round/session timing for one delta. hasData
// distinguishes a delta carrying content or tool-call fragments from a pure
// keep-alive.
func (p *Processor) recordArrivalLocked(now time.Time, hasData bool) {
	if !p.roundStarted {
		p.roundStarted = true
		if p.metrics.sessionStart.IsZero() {
			p.metrics.sessionStart = now
		}
	} else if !p.lastArrival.IsZero() {
		p.metrics.interarrival.push(now.Sub(p.lastArrival))
	}
	p.lastArrival = now

	if hasData && !p.metrics.hasTTFC {
		p.metrics.hasTTFC = true
		p.metrics.ttfc = now.Sub(p.metrics.sessionStart)
	}

	p.metrics.chunks++
}

// ingestContentLocked appends a fragment to the raw buffer and routes it
// through the batching engine or straight to a content event.
func (p *Processor) ingestContentLocked(fragment string, now time.Time) ([]Event, error) {
	p.rawParts = append(p.rawParts, fragment)
	p.rawDirty = true
	p.metrics.bytes += int64(len(fragment))

	var events []Event

	if p.shouldBatch(len(fragment), now) {
		p.batch.add(fragment, now)
		if p.shouldFlush(now) {
			ev, err := p.flushBatchLocked()
			if err != nil {
				return nil, err
			}
			if ev != nil {
				events = append(events, *ev)
			}
		}
	} else {
		// An isolated fragment closes any open batch first so event order
		// matches arrival order.
		flushed, err := p.flushBatchLocked()
		if err != nil {
			return nil, err
		}
		if flushed != nil {
			events = append(events, *flushed)
		}

		sanitized, err := p.sanitizeContent(fragment)
		if err != nil {
			return nil, err
		}
		p.appendSanitized(sanitized)
		events = append(events, ContentEvent(sanitized))
	}

	p.lastFragmentAt = now
	p.fragmentCount++

	return events, nil
}

func (p *Processor) sanitizeContent(s string) (string, error) {
	if !p.cfg.Sanitize || p.cfg.SanitizeFunc == nil {
		return s, nil
	}
	return p.cfg.SanitizeFunc(s)
}

func (p *Processor) appendSanitized(s string) {
	p.sanParts = append(p.sanParts, s)
	p.sanDirty = true
}

// rawContentLocked returns the cached join of the raw buffer, recomputing
// only when a fragment arrived since the last read.
func (p *Processor) rawContentLocked() string {
	if p.rawDirty {
		p.rawCache = strings.Join(p.rawParts, "")
		p.rawDirty = false
	}
	return p.rawCache
}

// AccumulatedContent returns everything received this round, unmodified,
// regardless of batching decisions or sanitization.
func (p *Processor) AccumulatedContent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rawContentLocked()
}

// SanitizedContent returns the concatenation of all emitted content — what
// the caller has been (or will be) handed via content events.
func (p *Processor) SanitizedContent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sanDirty {
		p.sanCache = strings.Join(p.sanParts, "")
		p.sanDirty = false
	}
	return p.sanCache
}

// ToolCalls returns the reportable tool-call records in first-seen order.
func (p *Processor) ToolCalls() []llm.ToolCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toolCallsLocked()
}

// ShouldRender reports whether the caller may re-render now. It returns true
// at most once per effective throttle interval and resets the interval clock
// when it does.
func (p *Processor) ShouldRender() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.throttle.shouldRender(p.now())
}

// ReportRenderDuration feeds one observed render cost back to the adaptive
// throttle controller.
func (p *Processor) ReportRenderDuration(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.throttle.reportRenderDuration(d)
}

// RenderInterval returns the current effective throttle interval.
func (p *Processor) RenderInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.throttle.interval
}

// Metrics computes a point-in-time telemetry snapshot.
func (p *Processor) Metrics() MetricsSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics.snapshot(p.now())
}

// SoftReset clears per-round state — content, tool calls, batch,
// backpressure queue, pending timer — but preserves metrics. Intended for
// multi-turn reuse within one session.
func (p *Processor) SoftReset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetRoundLocked()
}

// Reset discards everything, metrics and throttle state included, returning
// the processor to its initial state. Reset is synchronous and immediate: in
// flight batches, queued events, and the pending timer are simply dropped.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetRoundLocked()
	p.metrics.reset()
	p.throttle.reset(p.cfg)
}

func (p *Processor) resetRoundLocked() {
	p.disarmTimerLocked()

	p.rawParts = p.rawParts[:0]
	p.rawCache = ""
	p.rawDirty = false
	p.sanParts = p.sanParts[:0]
	p.sanCache = ""
	p.sanDirty = false

	p.calls = make(map[int]*toolCallState)
	p.callOrder = p.callOrder[:0]

	p.batch.reset()

	p.pending = p.pending[:0]
	p.backpressured = false

	p.roundStarted = false
	p.lastArrival = time.Time{}
	p.lastFragmentAt = time.Time{}
	p.fragmentCount = 0
}
