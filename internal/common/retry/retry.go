// Package retry provides a bounded polling combinator.
package retry

import (
	"context"
	"time"
)

// Until calls probe up to attempts times, waiting interval before each call,
// and reports whether any call returned true. It returns false as soon as ctx
// is done.
func Until(ctx context.Context, interval time.Duration, attempts int, probe func(context.Context) bool) bool {
	if attempts <= 0 {
		return false
	}
	t := time.NewTimer(interval)
	defer t.Stop()
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t.Reset(interval)
		}
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
		if ctx.Err() != nil {
			return false
		}
		if probe(ctx) {
			return true
		}
	}
	return false
}

// Sleep waits for d or until ctx is done, whichever comes first. It reports
// whether the full duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
