package password

import (
	"context"
	"time"
)

// Floor holds a request until at least Min has elapsed since it started, so
// every authentication outcome takes the same wall-clock time. It keeps no
// shared state: concurrent requests each wait on their own timer.
type Floor struct {
	Min time.Duration
}

// Wait blocks until Min has elapsed since start, measured on the monotonic
// clock, or until ctx is done.
func (f Floor) Wait(ctx context.Context, start time.Time) {
	remaining := f.Min - time.Since(start)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
