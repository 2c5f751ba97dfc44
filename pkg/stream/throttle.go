package stream

import "time"

// renderSampleWindow bounds the rolling window of reported render durations.
const renderSampleWindow = 20

// minThrottleSamples is how many render-duration reports must exist before
// the interval is recalculated.
const minThrottleSamples = 3

// throttleState implements the adaptive render throttle: a simple
// proportional controller that widens the advised interval when rendering is
// expensive relative to it and narrows it when rendering is cheap. It only
// reacts when fed; it never adjusts proactively.
type throttleState struct {
	interval time.Duration
	min      time.Duration
	max      time.Duration
	adaptive bool

	samples    window
	lastRender time.Time
}

func newThrottleState(cfg Config) throttleState {
	return throttleState{
		interval: clampDuration(cfg.RenderThrottle, cfg.MinRenderThrottle, cfg.MaxRenderThrottle),
		min:      cfg.MinRenderThrottle,
		max:      cfg.MaxRenderThrottle,
		adaptive: cfg.AdaptiveThrottle,
		samples:  newWindow(renderSampleWindow),
	}
}

// shouldRender reports whether a render is advised now. Returning true
// resets the internal clock, so callers get at most one true per effective
// interval.
func (t *throttleState) shouldRender(now time.Time) bool {
	if !t.lastRender.IsZero() && now.Sub(t.lastRender) < t.interval {
		return false
	}
	t.lastRender = now
	return true
}

// reportRenderDuration feeds one observed render cost back into the
// controller and recalculates the interval once enough samples exist.
//
// The control rule: render cost above 80% of the interval means the caller
// is spending most of its budget drawing, so back off by 20%; cost below 30%
// means there is headroom, so speed up by 20%. Both moves clamp to the
// configured bounds.
func (t *throttleState) reportRenderDuration(d time.Duration) {
	t.samples.push(d)

	if !t.adaptive || t.samples.len() < minThrottleSamples {
		return
	}

	avg := t.samples.mean()
	switch {
	case avg > t.interval*8/10:
		t.interval = clampDuration(t.interval*12/10, t.min, t.max)
	case avg < t.interval*3/10:
		t.interval = clampDuration(t.interval*8/10, t.min, t.max)
	}
}

func (t *throttleState) reset(cfg Config) {
	*t = newThrottleState(cfg)
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
