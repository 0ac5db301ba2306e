package vector

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// isRetryable classifies an outbound error as transient per the design's
// network/connect-refused/timeout/abort rules; remote 5xx responses (reported
// by doOnce as "server error") are treated as transient too.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{"connection refused", "timeout", "aborted", "reset by peer", "no such host", "server error"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// backoff implements min(2^(attempt-1)*1000ms, 10s), attempt is 1-based.
func backoff(attempt int) time.Duration {
	d := time.Duration(1) << uint(attempt-1) * time.Second
	const maxBackoff = 10 * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// withRetry calls fn up to maxRetries times, sleeping per backoff() between
// retryable failures. It stops immediately on a non-retryable error.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return lastErr
}
