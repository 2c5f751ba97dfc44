// Package capture provides asynchronous recording of model output deltas to
// JSONL capture files, and a reader that streams them back for replay.
//
// The recorder decouples disk writes from the streaming hot path so that
// feeding the processor is never blocked by I/O.
package capture

import (
	"github.com/papercomputeco/reel/pkg/llm"
)

// Record is one captured delta: the offset since the start of the capture in
// milliseconds, and the delta exactly as the provider layer produced it. One
// record per line in the capture file.
type Record struct {
	AtMs  int64     `json:"at_ms"`
	Delta llm.Delta `json:"delta"`
}
