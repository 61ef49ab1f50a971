package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Acquire blocks until another request would not exceed the quota, then records it
	Acquire(ctx context.Context) error
}

// ThrottleFunc is called when a limiter is about to block for wait
type ThrottleFunc func(wait time.Duration)

// Options selects and sizes a limiter
type Options struct {
	Strategy   string
	Requests   int
	Window     time.Duration
	OnThrottle ThrottleFunc
}

// New builds the limiter named by opts.Strategy
func New(opts Options) (Limiter, error) {
	if opts.Requests <= 0 {
		return nil, fmt.Errorf("requests must be positive, got %d", opts.Requests)
	}
	if opts.Window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", opts.Window)
	}

	switch strings.ToLower(opts.Strategy) {
	case "", "fixed":
		fw := NewFixedWindow(opts.Requests, opts.Window)
		fw.onThrottle = opts.OnThrottle
		return fw, nil
	case "sliding":
		sw := NewSlidingWindow(opts.Requests, opts.Window)
		sw.onThrottle = opts.OnThrottle
		return sw, nil
	case "smooth":
		return NewSmooth(opts.Requests, opts.Window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit strategy %q", opts.Strategy)
	}
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FixedWindow counts requests and, once the limit is reached, makes the
// caller sleep a full window while holding the limiter before resetting.
// It is coarse: a burst of limit requests may land at any point before the
// pause, but no rolling window ever sees more than limit requests.
type FixedWindow struct {
	limit      int
	window     time.Duration
	count      int
	onThrottle ThrottleFunc
	mu         sync.Mutex
}

// NewFixedWindow creates a new fixed window rate limiter
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:  limit,
		window: window,
	}
}

// Acquire records a request, pausing a full window first if the counter is full
func (fw *FixedWindow) Acquire(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if fw.count >= fw.limit {
		if fw.onThrottle != nil {
			fw.onThrottle(fw.window)
		}
		// Other workers queue on mu for the whole pause.
		if err := sleepCtx(ctx, fw.window); err != nil {
			return err
		}
		fw.count = 0
	}

	fw.count++
	return nil
}

// Count returns the number of requests recorded in the current window
func (fw *FixedWindow) Count() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	return fw.count
}

// SlidingWindow implements an exact rolling window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	onThrottle  ThrottleFunc
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// tryAcquire records a request if the window has room for it
func (sw *SlidingWindow) tryAcquire() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// Acquire blocks until the oldest request leaves the window
func (sw *SlidingWindow) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for !sw.tryAcquire() {
		sw.mu.Lock()
		var timeToWait time.Duration
		if len(sw.requests) > 0 {
			timeToWait = sw.windowSize - time.Since(sw.requests[0])
		}
		sw.mu.Unlock()

		if timeToWait <= 0 {
			timeToWait = time.Millisecond
		}
		if sw.onThrottle != nil {
			sw.onThrottle(timeToWait)
		}
		if err := sleepCtx(ctx, timeToWait); err != nil {
			return err
		}
	}
	return nil
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// Smooth spaces requests evenly, one every window/limit, with a burst of one
type Smooth struct {
	limiter *rate.Limiter
}

// NewSmooth creates a limiter backed by golang.org/x/time/rate
func NewSmooth(limit int, window time.Duration) *Smooth {
	return &Smooth{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), 1),
	}
}

// Acquire waits for the next evenly spaced slot
func (s *Smooth) Acquire(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}
