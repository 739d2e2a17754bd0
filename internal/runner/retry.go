package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/ttyv/internal/gemini"
	"github.com/kalambet/ttyv/internal/transcript"
)

const maxAttempts = 2

// callWithRetry runs call under the per-attempt timeout, retrying once
// after a short backoff when the failure looks transient. The returned
// error is wrapped with op so pipeline failures read as "fetching
// transcript: ..." in job records and logs.
func (r *Runner) callWithRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			r.log.Debug("retrying external call", "op", op, "error", lastErr)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(r.backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		// Parent cancellation and permanent failures pass straight
		// through; a second attempt cannot change the outcome.
		if ctx.Err() != nil || !retryable(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

// retryable reports whether a failed external call is worth one more
// attempt. Timeouts and transport hiccups are; missing captions,
// exhausted quota, and cancellation are not.
func retryable(err error) bool {
	switch {
	case errors.Is(err, transcript.ErrUnavailable):
		return false
	case errors.Is(err, gemini.ErrQuotaExceeded):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
