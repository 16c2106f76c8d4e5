package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff retries fn up to maxRetries times with quadratic backoff
// (base, 4*base, 9*base, ...). It stops early when ctx is cancelled.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func(ctx context.Context) error, logger *Logger) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * base
			logger.Warn("Retrying (attempt %d/%d) after %v...", attempt+1, maxRetries, backoff)
			if err := Sleep(ctx, backoff); err != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, err)
			}
		}
		if err := fn(ctx); err != nil {
			lastErr = err
			logger.Warn("Attempt %d failed: %v", attempt+1, err)
			if ctx.Err() != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt+1, ctx.Err())
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", maxRetries, lastErr)
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
