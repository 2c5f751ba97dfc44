package stream

import (
	"strings"
	"time"
)

// pendingBatch coalesces adjacent small content fragments so a burst of
// rapid tiny deltas becomes one event instead of dozens. The parts slice is
// cleared, not reallocated, on every flush.
type pendingBatch struct {
	parts    []string
	bytes    int
	openedAt time.Time
	open     bool
}

func (b *pendingBatch) add(fragment string, now time.Time) {
	if !b.open {
		b.open = true
		b.openedAt = now
	}
	b.parts = append(b.parts, fragment)
	b.bytes += len(fragment)
}

// join concatenates the pending fragments and clears the batch.
func (b *pendingBatch) join() string {
	joined := strings.Join(b.parts, "")
	b.parts = b.parts[:0]
	b.bytes = 0
	b.open = false
	return joined
}

func (b *pendingBatch) reset() {
	b.parts = b.parts[:0]
	b.bytes = 0
	b.open = false
	b.openedAt = time.Time{}
}

// shouldBatch decides whether a content fragment joins the pending batch
// instead of being emitted immediately. A fragment is batched only when all
// hold:
//
//  1. it is smaller than the size threshold,
//  2. it arrived within isolationFactor× the time threshold of the previous
//     fragment (slow, isolated fragments render immediately), and
//  3. a batch is already open, or this is not the very first fragment of
//     the round (a lone opening fragment is never held back).
func (p *Processor) shouldBatch(fragLen int, now time.Time) bool {
	if !p.cfg.EnableBatching {
		return false
	}
	if fragLen >= p.cfg.BatchSizeThreshold {
		return false
	}
	if p.lastFragmentAt.IsZero() {
		return false
	}
	if now.Sub(p.lastFragmentAt) >= isolationFactor*p.cfg.BatchTimeThreshold {
		return false
	}
	return p.batch.open || p.fragmentCount > 0
}

// shouldFlush reports whether the open batch must be flushed now: its byte
// size reached the size threshold, or it has been open for the full time
// threshold — whichever comes first.
func (p *Processor) shouldFlush(now time.Time) bool {
	if !p.batch.open {
		return false
	}
	if p.batch.bytes >= p.cfg.BatchSizeThreshold {
		return true
	}
	return now.Sub(p.batch.openedAt) >= p.cfg.BatchTimeThreshold
}

// flushBatchLocked joins, sanitizes, and converts the open batch into a
// content event. Returns nil when no batch is open. A sanitizer error
// propagates unmodified; the batch is still consumed so the failing content
// is not re-emitted forever.
func (p *Processor) flushBatchLocked() (*Event, error) {
	if !p.batch.open {
		return nil, nil
	}

	joined := p.batch.join()
	p.metrics.batchFlushes++

	sanitized, err := p.sanitizeContent(joined)
	if err != nil {
		return nil, err
	}

	p.appendSanitized(sanitized)
	ev := ContentEvent(sanitized)
	return &ev, nil
}
