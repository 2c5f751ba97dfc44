// Package worker provides an asynchronous worker pool that persists completed
// streams as capture files.
//
// The pool decouples capture writes from the proxy's HTTP hot path so that the
// client-proxy-upstream interaction is fully transparent.
package worker

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/capture"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is one completed stream: the deltas accumulated while proxying it,
// stamped with their arrival offsets, plus the metadata used to name and tag
// the capture file.
type Job struct {
	Provider string
	Model    string
	Records  []capture.Record
}

// Config is the configuration options for the worker pool.
type Config struct {
	// CaptureDir is the directory capture files are written to. Created if
	// it does not exist.
	CaptureDir string

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool writes capture files asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.CaptureDir == "" {
		return nil, errors.New("capture dir is required")
	}

	if err := os.MkdirAll(c.CaptureDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating capture dir: %w", err)
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("provider", job.Provider),
			zap.String("model", job.Model),
			zap.Int("records", len(job.Records)),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("provider", job.Provider),
			zap.String("model", job.Model),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the proxy HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("capture worker stopped", zap.Uint("worker_id", id))
}

// processJob writes one completed stream to its own capture file.
func (p *Pool) processJob(job Job) {
	if len(job.Records) == 0 {
		return
	}

	name := fmt.Sprintf("proxy-%s-%s.jsonl",
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8],
	)
	path := filepath.Join(p.config.CaptureDir, name)

	recorder, err := capture.NewRecorder(path, &capture.Config{
		QueueSize: uint(len(job.Records)),
		Logger:    p.logger,
	})
	if err != nil {
		p.logger.Error("async capture write failed",
			zap.String("provider", job.Provider),
			zap.Error(err),
		)
		return
	}

	for _, rec := range job.Records {
		recorder.Record(rec)
	}

	if err := recorder.Close(); err != nil {
		p.logger.Error("closing capture file",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("stream captured",
		zap.String("path", path),
		zap.String("provider", job.Provider),
		zap.String("model", job.Model),
		zap.Int("records", len(job.Records)),
	)
}
