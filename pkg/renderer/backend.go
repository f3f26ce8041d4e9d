package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoBackend is returned by Step when no compute backend is available
var ErrNoBackend = errors.New("no compute backend")

// ErrBackendClosed is returned by a backend used after Close
var ErrBackendClosed = errors.New("backend closed")

// Job asks a backend to fill Band of Target using Evaluator
type Job struct {
	Evaluator *Evaluator
	Band      Band
	Target    *Accumulator
}

// Backend executes the per-pixel evaluation of a band. Implementations may
// run it anywhere as long as every pixel of the band is written before
// EvaluateBand returns and nothing outside the band is touched.
type Backend interface {
	Name() string
	EvaluateBand(ctx context.Context, job Job) error
	Close() error
}

// CPUBackend evaluates bands on a pool of goroutines
type CPUBackend struct {
	mu          sync.Mutex
	pool        *WorkerPool
	rowsPerTask int
	closed      bool
}

// NewCPUBackend starts a worker pool with numWorkers workers (0 = CPU count)
func NewCPUBackend(numWorkers int) *CPUBackend {
	pool := NewWorkerPool(numWorkers)
	pool.Start()
	return &CPUBackend{pool: pool, rowsPerTask: 1}
}

// Name returns "cpu"
func (b *CPUBackend) Name() string {
	return "cpu"
}

// EvaluateBand splits the band into scanline tasks and waits for all of them.
// The first task error is returned after every task has finished.
func (b *CPUBackend) EvaluateBand(ctx context.Context, job Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}

	chunks := SplitBand(job.Band, b.rowsPerTask)
	go func() {
		for i, chunk := range chunks {
			b.pool.SubmitTask(BandTask{Ctx: ctx, Job: job, Band: chunk, TaskID: i})
		}
	}()

	var firstErr error
	for range chunks {
		result, ok := b.pool.GetResult()
		if !ok {
			return fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil && firstErr == nil {
			firstErr = result.Error
		}
	}
	return firstErr
}

// Close stops the workers. It is safe to call more than once.
func (b *CPUBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		b.pool.Stop()
	}
	return nil
}
