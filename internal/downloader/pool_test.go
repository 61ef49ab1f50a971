package downloader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"inatscraper/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	var calls int32
	pool := NewWorkerPool(context.Background(), "test", 3, func(ctx context.Context, id int, job int) string {
		atomic.AddInt32(&calls, 1)
		time.Sleep(5 * time.Millisecond)
		return fmt.Sprintf("done-%d", job)
	}, logger.NewNopLogger())
	pool.Start()

	var results []string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(i); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
	if got := atomic.LoadInt32(&calls); got != int32(numJobs) {
		t.Errorf("Expected %d handler calls, got %d", numJobs, got)
	}
	assert.Equal(t, 3, pool.Workers())
	assert.Zero(t, pool.QueueSize())
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, "test", 1, func(ctx context.Context, id int, job int) int { return job }, logger.NewNopLogger())
	pool.Start()
	cancel()

	err := pool.Submit(1)
	assert.ErrorIs(t, err, context.Canceled)

	pool.Stop()
	for range pool.Results() {
	}
}

func TestWorkerPoolClampsWorkers(t *testing.T) {
	pool := NewWorkerPool(context.Background(), "test", 0, func(ctx context.Context, id int, job int) int { return job }, nil)
	assert.Equal(t, 1, pool.Workers())
	pool.Start()
	pool.Stop()
}

func TestRunPreservesJobOrder(t *testing.T) {
	jobs := []int{50, 10, 40, 0, 30, 20}
	results := Run(context.Background(), "order", 3, jobs, func(ctx context.Context, id int, job int) int {
		time.Sleep(time.Duration(job) * time.Millisecond)
		return job * 2
	}, logger.NewNopLogger())

	assert.Equal(t, []int{100, 20, 80, 0, 60, 40}, results)
}

func TestRunEmpty(t *testing.T) {
	results := Run(context.Background(), "empty", 4, []int(nil), func(ctx context.Context, id int, job int) int { return job }, nil)
	assert.Empty(t, results)
}

func TestRunBoundsConcurrency(t *testing.T) {
	const workers = 4
	var active, peak int32

	jobs := make([]int, 20)
	results := Run(context.Background(), "bounded", workers, jobs, func(ctx context.Context, id int, job int) bool {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return true
	}, logger.NewNopLogger())

	assert.Len(t, results, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestRunZeroWorkersMeansOnePerJob(t *testing.T) {
	var mu sync.Mutex
	ids := make(map[int]bool)

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(5)

	go func() {
		started.Wait()
		close(release)
	}()

	results := Run(context.Background(), "fanout", 0, make([]int, 5), func(ctx context.Context, id int, job int) int {
		mu.Lock()
		ids[id] = true
		mu.Unlock()
		started.Done()
		<-release
		return id
	}, logger.NewNopLogger())

	require.Len(t, results, 5)
	assert.Len(t, ids, 5)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen int32
	results := Run(ctx, "cancelled", 2, make([]int, 10), func(ctx context.Context, id int, job int) error {
		atomic.AddInt32(&seen, 1)
		return ctx.Err()
	}, logger.NewNopLogger())

	assert.Len(t, results, int(atomic.LoadInt32(&seen)))
	for _, err := range results {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
