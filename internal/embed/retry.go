package embed

import (
	"context"
	"time"
)

// retrySchedule is the fixed backoff between attempts: the first attempt runs
// immediately, then 0.5s, 1s, 2s before each retry. After the last attempt the
// failure is final.
var retrySchedule = []time.Duration{
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
}

// withRetry runs fn up to len(retrySchedule)+1 times, sleeping per the schedule
// between attempts. Cancellation aborts the wait.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= len(retrySchedule) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retrySchedule[attempt]):
		}
	}
}
