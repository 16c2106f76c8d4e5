package extraction

import (
	"context"
	"time"

	"catalog-scraper/utils"
)

// CallPolicy bounds every call into the browser: each attempt gets Timeout,
// and a failing call is retried at most MaxRetries times in total.
type CallPolicy struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// do runs fn under the policy. Exhausted retries surface as *LoadError;
// cancellation of ctx is returned as-is so callers can tell the two apart.
func (p CallPolicy) do(ctx context.Context, op string, logger *utils.Logger, fn func(ctx context.Context) error) error {
	attempts := 0
	err := utils.RetryWithBackoff(ctx, p.MaxRetries, p.Backoff, func(ctx context.Context) error {
		attempts++
		if p.Timeout <= 0 {
			return fn(ctx)
		}
		cctx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		return fn(cctx)
	}, logger)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &LoadError{Op: op, Attempts: attempts, Cause: err}
}
