package capture

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

var defaultQueueSize uint = 256

// Config is the configuration options for the recorder.
type Config struct {
	// QueueSize is the capacity of the buffered record channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Recorder appends delta records to a capture file from a background
// goroutine. A single writer keeps records in arrival order; multiple
// workers would interleave JSONL lines.
type Recorder struct {
	w      io.WriteCloser
	enc    *json.Encoder
	queue  chan Record
	wg     sync.WaitGroup
	logger *zap.Logger
	start  time.Time
}

// NewRecorder creates a recorder writing to the file at path (truncating any
// existing capture) and starts its writer goroutine.
func NewRecorder(path string, c *Config) (*Recorder, error) {
	if c == nil {
		c = &Config{}
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening capture file: %w", err)
	}

	r := &Recorder{
		w:      f,
		enc:    json.NewEncoder(f),
		queue:  make(chan Record, c.QueueSize),
		logger: c.Logger,
		start:  time.Now(),
	}

	r.wg.Add(1)
	go r.writer()

	return r, nil
}

// Record submits one delta for capture, stamped with the elapsed offset since
// the recorder started. Returns true if enqueued, false if the queue is full,
// resulting in the record being dropped.
func (r *Recorder) Record(rec Record) bool {
	if rec.AtMs == 0 {
		rec.AtMs = time.Since(r.start).Milliseconds()
	}

	select {
	case r.queue <- rec:
		return true
	default:
		r.logger.Warn("capture queue full, record dropped",
			zap.Int64("at_ms", rec.AtMs),
		)
		return false
	}
}

// Close stops the writer and waits for queued records to drain to disk.
func (r *Recorder) Close() error {
	close(r.queue)
	r.wg.Wait()
	return r.w.Close()
}

// writer is the single background goroutine draining the queue to the file.
func (r *Recorder) writer() {
	defer r.wg.Done()

	for rec := range r.queue {
		if err := r.enc.Encode(rec); err != nil {
			r.logger.Error("capture write failed",
				zap.Int64("at_ms", rec.AtMs),
				zap.Error(err),
			)
		}
	}
}
