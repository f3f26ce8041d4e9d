package renderer

import (
	"context"
	"runtime"
	"sync"
)

// BandTask is one chunk of scanlines to evaluate
type BandTask struct {
	Ctx    context.Context
	Job    Job
	Band   Band
	TaskID int
}

// BandResult reports a finished task
type BandResult struct {
	TaskID int
	Error  error
}

// WorkerPool evaluates band tasks in parallel. Tasks cover disjoint
// scanlines, so workers write into the shared accumulator without locking.
type WorkerPool struct {
	taskQueue   chan BandTask
	resultQueue chan BandResult
	numWorkers  int
	wg          sync.WaitGroup
}

// NewWorkerPool creates a pool with numWorkers workers (0 = CPU count)
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		taskQueue:   make(chan BandTask, numWorkers),
		resultQueue: make(chan BandResult, numWorkers),
		numWorkers:  numWorkers,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
}

// Stop drains the workers. No task may be submitted afterwards.
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

// SubmitTask queues a task, blocking while the queue is full
func (wp *WorkerPool) SubmitTask(task BandTask) {
	wp.taskQueue <- task
}

// GetResult waits for the next finished task
func (wp *WorkerPool) GetResult() (BandResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// NumWorkers returns the number of workers in the pool
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

func (wp *WorkerPool) run() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.resultQueue <- BandResult{
			TaskID: task.TaskID,
			Error:  evaluateBand(task.Ctx, task.Job, task.Band),
		}
	}
}

// evaluateBand fills the job target for every pixel of the band
func evaluateBand(ctx context.Context, job Job, band Band) error {
	width := job.Target.Width()
	for y := band.Y0; y < band.Y1; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < width; x++ {
			job.Target.Set(x, y, job.Evaluator.Pixel(x, y))
		}
	}
	return nil
}
