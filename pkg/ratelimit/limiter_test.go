package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindow(t *testing.T) {
	fw := NewFixedWindow(3, 200*time.Millisecond)
	ctx := context.Background()

	// Test initial requests
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, fw.Acquire(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "first limit requests must not block")
	assert.Equal(t, 3, fw.Count())

	// The limit+1-th request sleeps a full window then starts a new count
	start = time.Now()
	require.NoError(t, fw.Acquire(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, 1, fw.Count())
}

func TestFixedWindowHoldsLockDuringPause(t *testing.T) {
	var throttled atomic.Int32
	limiter, err := New(Options{
		Strategy:   "fixed",
		Requests:   2,
		Window:     150 * time.Millisecond,
		OnThrottle: func(time.Duration) { throttled.Add(1) },
	})
	require.NoError(t, err)

	ctx := context.Background()
	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, limiter.Acquire(ctx))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, times, 5)
	// 5 requests at 2 per window need two pauses
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, int32(2), throttled.Load())
	assertRollingWindow(t, times, 2, 130*time.Millisecond)
}

func TestFixedWindowCancelledWhileWaiting(t *testing.T) {
	fw := NewFixedWindow(1, time.Hour)
	require.NoError(t, fw.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := fw.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, fw.Count(), "cancelled acquire must not record a request")
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, time.Second)

	// Test initial requests
	for i := 0; i < 3; i++ {
		assert.True(t, sw.tryAcquire(), "request %d should be allowed", i+1)
	}

	// Test limit reached
	assert.False(t, sw.tryAcquire())
	assert.Len(t, sw.requests, 3)

	// Test window sliding
	time.Sleep(time.Second + 100*time.Millisecond)
	assert.True(t, sw.tryAcquire())
	assert.Len(t, sw.requests, 1)
}

func TestSlidingWindowAcquire(t *testing.T) {
	sw := NewSlidingWindow(2, 200*time.Millisecond)
	ctx := context.Background()

	var times []time.Time
	for i := 0; i < 4; i++ {
		require.NoError(t, sw.Acquire(ctx))
		times = append(times, time.Now())
	}

	assert.GreaterOrEqual(t, times[2].Sub(times[0]), 180*time.Millisecond)
	assertRollingWindow(t, times, 2, 180*time.Millisecond)
}

func TestSmooth(t *testing.T) {
	s := NewSmooth(4, 200*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Acquire(ctx))
	}
	// Burst of one, then one slot every 50ms
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Acquire(ctx), "next slot is further away than the deadline")
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantType interface{}
		wantErr  bool
	}{
		{"default is fixed", Options{Requests: 60, Window: time.Minute}, &FixedWindow{}, false},
		{"fixed", Options{Strategy: "fixed", Requests: 60, Window: time.Minute}, &FixedWindow{}, false},
		{"sliding", Options{Strategy: "Sliding", Requests: 60, Window: time.Minute}, &SlidingWindow{}, false},
		{"smooth", Options{Strategy: "smooth", Requests: 60, Window: time.Minute}, &Smooth{}, false},
		{"unknown strategy", Options{Strategy: "leaky", Requests: 60, Window: time.Minute}, nil, true},
		{"zero requests", Options{Requests: 0, Window: time.Minute}, nil, true},
		{"zero window", Options{Requests: 60}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, limiter)
		})
	}
}

// assertRollingWindow checks no window-sized span holds more than limit requests.
func assertRollingWindow(t *testing.T, times []time.Time, limit int, window time.Duration) {
	t.Helper()
	for i := range times {
		inWindow := 0
		for j := range times {
			d := times[j].Sub(times[i])
			if d >= 0 && d < window {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, limit, "requests starting at %d exceed the limit", i)
	}
}
