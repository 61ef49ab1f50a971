// Package ratelimit provides the shared request quota for the iNaturalist API.
//
// A single Limiter instance is shared by every species worker. Acquire blocks
// until one more request fits in the quota and records it in the same
// critical section, so concurrent callers never overshoot.
//
// Available Implementations:
//
// Fixed Window (default):
//   - Counts requests; once the limit is reached the caller sleeps a full
//     window while holding the limiter, then resets the count
//   - Coarse, but never more than limit requests in any rolling window
//
// Sliding Window:
//   - Tracks request timestamps within a moving time window
//   - Waits only until the oldest request leaves the window
//
// Smooth:
//   - golang.org/x/time/rate with one token every window/limit and burst 1
//
// Usage:
//
//	limiter, err := ratelimit.New(ratelimit.Options{
//	    Strategy: "fixed",
//	    Requests: 60,
//	    Window:   time.Minute,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := limiter.Acquire(ctx); err != nil {
//	    return err
//	}
//	// Proceed with request
package ratelimit
