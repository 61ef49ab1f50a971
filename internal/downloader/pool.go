package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inatscraper/pkg/logger"
)

// Handler processes one job on a worker. It must honour ctx and always
// return a result; failures belong inside R.
type Handler[J, R any] func(ctx context.Context, workerID int, job J) R

// WorkerPool runs a fixed number of workers over a job queue. The species
// level and the photo level of a harvest are both instances of it.
type WorkerPool[J, R any] struct {
	name        string
	numWorkers  int
	jobQueue    chan J
	resultQueue chan R
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	handle      Handler[J, R]
	logger      logger.Logger
}

// NewWorkerPool creates a pool whose workers run handle. numWorkers below
// one is raised to one.
func NewWorkerPool[J, R any](ctx context.Context, name string, numWorkers int, handle Handler[J, R], log logger.Logger) *WorkerPool[J, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool[J, R]{
		name:        name,
		numWorkers:  numWorkers,
		jobQueue:    make(chan J, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan R, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		handle:      handle,
		logger:      log.WithField("pool", name),
	}
}

// Start launches the workers
func (wp *WorkerPool[J, R]) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for queued jobs to finish and closes Results.
// Results must be drained concurrently or Stop can block.
func (wp *WorkerPool[J, R]) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit queues a job, failing once the pool's context is done
func (wp *WorkerPool[J, R]) Submit(job J) error {
	select {
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool %s is shutting down: %w", wp.name, wp.ctx.Err())
	default:
	}

	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool %s is shutting down: %w", wp.name, wp.ctx.Err())
	}
}

// Results returns the result channel; it is closed by Stop
func (wp *WorkerPool[J, R]) Results() <-chan R {
	return wp.resultQueue
}

// QueueSize returns the number of jobs waiting for a worker
func (wp *WorkerPool[J, R]) QueueSize() int {
	return len(wp.jobQueue)
}

// Workers returns the pool size
func (wp *WorkerPool[J, R]) Workers() int {
	return wp.numWorkers
}

func (wp *WorkerPool[J, R]) worker(id int) {
	defer wp.wg.Done()

	// Jobs already queued still run after cancellation so every submitted
	// job yields a result; the handler sees the cancelled context.
	for job := range wp.jobQueue {
		start := time.Now()
		result := wp.handle(wp.ctx, id, job)

		wp.logger.DebugWithFields("Worker finished job", map[string]interface{}{
			"worker_id": id,
			"duration":  time.Since(start),
		})
		wp.resultQueue <- result
	}
}

type indexed[T any] struct {
	index int
	value T
}

// Run processes jobs on a pool of size workers and returns one result per
// submitted job, in job order. workers <= 0 means one worker per job. When
// ctx is cancelled, jobs not yet submitted are dropped from the result.
func Run[J, R any](ctx context.Context, name string, workers int, jobs []J, handle Handler[J, R], log logger.Logger) []R {
	if len(jobs) == 0 {
		return nil
	}
	if workers <= 0 || workers > len(jobs) {
		workers = len(jobs)
	}

	pool := NewWorkerPool(ctx, name, workers, func(ctx context.Context, id int, job indexed[J]) indexed[R] {
		return indexed[R]{index: job.index, value: handle(ctx, id, job.value)}
	}, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for i, job := range jobs {
			if err := pool.Submit(indexed[J]{index: i, value: job}); err != nil {
				pool.logger.WarnWithFields("Stopped submitting jobs", map[string]interface{}{
					"submitted": i,
					"total":     len(jobs),
					"error":     err.Error(),
				})
				return
			}
		}
	}()

	slots := make([]*R, len(jobs))
	for r := range pool.Results() {
		v := r.value
		slots[r.index] = &v
	}

	results := make([]R, 0, len(jobs))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}
