package stream

import (
	"fmt"
	"time"
)

// The timeout supervisor keeps at most one timer outstanding. Every
// ProcessDelta disarms on entry and re-arms on exit — disarm-then-rearm, in
// that order, so a timer firing concurrently with a real chunk's arrival is
// invalidated before any new state is built. The generation counter closes
// the remaining race: a callback that already fired but has not yet taken
// the lock observes a stale generation and does nothing.

// armTimerLocked starts the chunk timer. Caller holds p.mu. A zero
// ChunkTimeout disables the supervisor entirely.
func (p *Processor) armTimerLocked() {
	if p.cfg.ChunkTimeout <= 0 {
		return
	}

	p.timerGen++
	gen := p.timerGen
	timeout := p.cfg.ChunkTimeout

	p.timer = time.AfterFunc(timeout, func() {
		p.onChunkTimeout(gen, timeout)
	})
}

// disarmTimerLocked stops any outstanding timer and invalidates callbacks
// already in flight. Caller holds p.mu.
func (p *Processor) disarmTimerLocked() {
	p.timerGen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// onChunkTimeout runs on the timer goroutine. It records the timeout and
// injects a synthetic error event into the pending queue for the caller to
// discover on its next drain — it never interrupts an in-flight call, and it
// does not re-arm: the next delta does that.
func (p *Processor) onChunkTimeout(gen uint64, timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.timerGen {
		// Disarmed or re-armed since this callback was scheduled.
		return
	}
	p.timer = nil

	p.metrics.chunkTimeouts++
	p.pending = append(p.pending, ErrorEvent(
		fmt.Sprintf("no chunk received within %s", timeout),
	))
}
