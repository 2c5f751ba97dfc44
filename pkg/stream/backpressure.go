package stream

// gateLocked applies backpressure to freshly produced events. When the
// combined pending+new length exceeds MaxPendingEvents, the processor enters
// backpressure: new events are appended to the queue (deferred, never lost)
// and the caller receives nothing until it drains. The flag clears only once
// the queue falls below half of MaxPendingEvents — hysteresis that keeps the
// controller from oscillating at the boundary. Caller holds p.mu.
func (p *Processor) gateLocked(events []Event) []Event {
	if !p.cfg.EnableBackpressure {
		return events
	}

	if p.backpressured {
		p.pending = append(p.pending, events...)
		if len(p.pending) < p.cfg.MaxPendingEvents/2 {
			p.backpressured = false
		}
		return nil
	}

	if len(p.pending)+len(events) > p.cfg.MaxPendingEvents {
		p.backpressured = true
		p.metrics.backpressureEvents++
		p.pending = append(p.pending, events...)
		return nil
	}

	return events
}

// Drain hands up to limit queued events back to the caller, oldest first,
// and re-evaluates the backpressure exit condition. limit <= 0 drains
// everything. Timeout error events injected by the supervisor surface here
// too, so callers should drain on their render cadence even when they never
// trigger backpressure.
func (p *Processor) Drain(limit int) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.pending)
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		if p.backpressured && len(p.pending) < p.cfg.MaxPendingEvents/2 {
			p.backpressured = false
		}
		return nil
	}

	out := make([]Event, n)
	copy(out, p.pending)
	remaining := copy(p.pending, p.pending[n:])
	p.pending = p.pending[:remaining]

	if p.backpressured && len(p.pending) < p.cfg.MaxPendingEvents/2 {
		p.backpressured = false
	}

	return out
}

// IsUnderBackpressure reports whether events are currently being deferred.
func (p *Processor) IsUnderBackpressure() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backpressured
}

// PendingEvents returns the current queue length.
func (p *Processor) PendingEvents() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
