package optris

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// RetryPolicy bounds the polling loop of PaletteFrame.  The loop calls the
// SDK back to back, with no delay other than a yield to the scheduler,
// until it returns 0, the policy is exhausted or the context is done.
// The zero value retries until the context is done.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of native calls, 0 for no limit
	MaxAttempts uint64

	// MaxWait is the maximum time spent polling, 0 for no limit
	MaxWait time.Duration
}

var (
	// DefaultRetryPolicy is used by new sessions
	DefaultRetryPolicy = RetryPolicy{MaxWait: 3 * time.Second}

	// RetryForever polls until the context passed to PaletteFrame is done
	RetryForever = RetryPolicy{}
)

// retry calls op until it returns nil or an error wrapped in
// backoff.Permanent, the policy is exhausted or ctx is done.
// It returns the number of calls made.
//
// When the caller's ctx is done the context error is returned.  When the
// policy itself runs out the last SDK error is returned.
func (p RetryPolicy) retry(ctx context.Context, op func() error) (int, error) {
	bounded := ctx
	if p.MaxWait > 0 {
		var cancel context.CancelFunc
		bounded, cancel = context.WithTimeout(ctx, p.MaxWait)
		defer cancel()
	}
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.MaxAttempts > 0 {
		// WithMaxRetries counts retries, not attempts
		b = backoff.WithMaxRetries(b, p.MaxAttempts-1)
	}
	attempts := 0
	permanent := false
	var last error
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if bounded.Err() != nil && last != nil {
			return backoff.Permanent(last)
		}
		attempts++
		last = op()
		if _, ok := last.(*backoff.PermanentError); ok {
			permanent = true
		}
		return last
	}, backoff.WithContext(b, bounded))
	if err == nil || permanent {
		return attempts, err
	}
	// backoff stops on a passed deadline before the context's timer fires
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		<-ctx.Done()
	}
	if ctx.Err() != nil {
		return attempts, ctx.Err()
	}
	return attempts, err
}
