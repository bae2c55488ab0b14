package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// CallPolicy bounds one backend call: each attempt gets Timeout, and a
// transient failure is retried up to Retries more times.
type CallPolicy struct {
	Timeout time.Duration
	Retries int
}

var ErrAttemptTimeout = errors.New("backend call timed out")

// Do runs fn under the policy. The parent context being done is never retried.
func Do[T any](ctx context.Context, p CallPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(lastErr).Str("op", op).Int("attempt", attempt+1).Msg("Retrying after transient failure")
		}
		res, err := runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsTransient(err) {
			break
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, timeout, err)
	}
	return res, err
}

// IsTransient reports network failures worth a second attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAttemptTimeout) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
