// Package retry implements the A2A Client's exponential backoff retry
// envelope, per spec.md §4.3/§7: retryable transport failures are retried
// with backoff base·2^attempt up to maxRetries; non-retryable failures
// surface immediately.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config bounds a retry envelope.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig matches spec.md §4.3's default retry envelope.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: 100 * time.Millisecond}
}

// ErrTransient marks a failure reported by the remote side as transient,
// such as an HTTP 5xx response; errors wrapping it are Retryable.
var ErrTransient = errors.New("transient server error")

// Retryable reports whether err represents a transient failure
// (connection refused/reset, timeout, context deadline, or an error
// wrapping ErrTransient) that is worth retrying, versus a protocol-level
// error that is not (spec.md §7).
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Do runs fn, retrying on Retryable errors with exponential backoff
// (cfg.BaseDelay·2^attempt) until cfg.MaxRetries is exhausted or ctx is
// done. A non-retryable error returns immediately without further
// attempts.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BaseDelay
	bo.Multiplier = 2

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if !Retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(cfg.MaxRetries+1)))

	return err
}
