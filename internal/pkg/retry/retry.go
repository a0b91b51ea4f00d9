// Package retry provides a reusable backoff policy for storage and index
// calls, plus an HTTP client wrapper built on the same policy.
package retry

import (
	"context"
	"time"

	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
)

// Policy describes exponential backoff between attempts. The wait before
// attempt n+1 is Multiplier * 2^(n-1), clamped to [MinDelay, MaxDelay].
type Policy struct {
	MaxAttempts int
	Multiplier  time.Duration
	MinDelay    time.Duration
	MaxDelay    time.Duration

	// RetryIf classifies an error as transient. Nil retries everything.
	RetryIf func(error) bool
}

// Default matches the pipeline-wide backoff: up to 4 attempts with waits of
// 4s, 4s, 8s between them.
func Default() Policy {
	return Policy{
		MaxAttempts: 4,
		Multiplier:  2 * time.Second,
		MinDelay:    4 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait after the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Multiplier
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d < p.MinDelay {
		d = p.MinDelay
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) retryable(err error) bool {
	if p.RetryIf == nil {
		return true
	}
	return p.RetryIf(err)
}

// Do runs fn under the policy. It returns nil on the first success, the last
// error once attempts are exhausted, and immediately on errors the policy
// classifies as permanent. op names the operation in retry logs.
func Do(ctx context.Context, p Policy, op string, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Delay(attempt)
		logger.Warn("retrying operation",
			"op", op,
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"wait", wait.String(),
			"error", lastErr.Error(),
		)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}
	return lastErr
}
