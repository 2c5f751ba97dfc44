package stream

import "time"

// SanitizeFunc filters a content fragment before it is emitted. An error
// returned here propagates unmodified out of ProcessDelta / Finish — the
// processor does not swallow collaborator failures.
type SanitizeFunc func(string) (string, error)

// Config holds the processor tuning knobs. Use DefaultConfig and override
// fields rather than constructing a zero Config: boolean features default to
// enabled, which a zero value cannot express. NewProcessor fills zero
// numeric fields from DefaultConfig.
type Config struct {
	// Sanitize routes content through SanitizeFunc before emission.
	Sanitize bool

	// SanitizeFunc is the injected content filter. Nil means passthrough.
	SanitizeFunc SanitizeFunc

	// ExtractCommentaryTools enables the end-of-round fallback that scans
	// freeform content for commentary-style tool invocations when no
	// structured tool calls arrived.
	ExtractCommentaryTools bool

	// EnableBatching coalesces rapid small content fragments before
	// emitting them as events.
	EnableBatching bool

	// BatchSizeThreshold is the pending byte count that forces a flush,
	// and the fragment size at or above which a fragment is never batched.
	BatchSizeThreshold int

	// BatchTimeThreshold is the maximum age of an open batch before it is
	// flushed. Fragments arriving more than isolationFactor times this
	// apart are treated as isolated and emitted immediately.
	BatchTimeThreshold time.Duration

	// EnableBackpressure defers events into an internal queue when the
	// caller falls behind.
	EnableBackpressure bool

	// MaxPendingEvents is the queue length that triggers backpressure.
	// Backpressure clears once the queue drains below half this value.
	MaxPendingEvents int

	// RenderThrottle is the initial advised interval between renders.
	RenderThrottle time.Duration

	// AdaptiveThrottle adjusts the render interval from reported render
	// durations, within [MinRenderThrottle, MaxRenderThrottle].
	AdaptiveThrottle bool

	MinRenderThrottle time.Duration
	MaxRenderThrottle time.Duration

	// ChunkTimeout is how long the processor waits for the next delta
	// before injecting a synthetic error event. Zero disables the
	// supervisor entirely.
	ChunkTimeout time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Sanitize:               true,
		ExtractCommentaryTools: true,
		EnableBatching:         true,
		BatchSizeThreshold:     64,
		BatchTimeThreshold:     16 * time.Millisecond,
		EnableBackpressure:     true,
		MaxPendingEvents:       100,
		RenderThrottle:         16 * time.Millisecond,
		AdaptiveThrottle:       true,
		MinRenderThrottle:      8 * time.Millisecond,
		MaxRenderThrottle:      50 * time.Millisecond,
		ChunkTimeout:           5 * time.Second,
	}
}

// isolationFactor scales BatchTimeThreshold for the batching isolation rule:
// a fragment arriving later than isolationFactor×BatchTimeThreshold after
// the previous one renders immediately instead of joining a batch. This is a
// responsiveness heuristic, not a correctness bound.
const isolationFactor = 2

// applyDefaults fills zero numeric fields from DefaultConfig so partially
// populated configs behave sensibly.
func applyDefaults(cfg Config) Config {
	d := DefaultConfig()

	if cfg.BatchSizeThreshold == 0 {
		cfg.BatchSizeThreshold = d.BatchSizeThreshold
	}
	if cfg.BatchTimeThreshold == 0 {
		cfg.BatchTimeThreshold = d.BatchTimeThreshold
	}
	if cfg.MaxPendingEvents == 0 {
		cfg.MaxPendingEvents = d.MaxPendingEvents
	}
	if cfg.RenderThrottle == 0 {
		cfg.RenderThrottle = d.RenderThrottle
	}
	if cfg.MinRenderThrottle == 0 {
		cfg.MinRenderThrottle = d.MinRenderThrottle
	}
	if cfg.MaxRenderThrottle == 0 {
		cfg.MaxRenderThrottle = d.MaxRenderThrottle
	}

	return cfg
}
