package store

import (
	"context"
	"errors"
	"time"

	"github.com/matzehuels/sitecraft/pkg/document"
	apperrors "github.com/matzehuels/sitecraft/pkg/errors"
)

// maxRetryDelay caps the doubling backoff.
const maxRetryDelay = 30 * time.Second

// RetryableError marks a transient backend failure.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with [Retryable] or carries a
// TIMEOUT code.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re) || apperrors.Is(err, apperrors.ErrCodeTimeout)
}

// Retry calls fn until it succeeds, returns a non-retryable error, or has
// been called attempts times. The wait starts at delay and doubles up to
// maxRetryDelay. A cancelled ctx ends the wait with ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	err := fn()
	for n := 1; n < attempts && err != nil && IsRetryable(err); n++ {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(2*delay, maxRetryDelay)
		err = fn()
	}
	return err
}

// RetryPolicy configures [WithRetry].
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy tries three times, waiting one then two seconds.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

func retryValue[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (T, error) {
	var v T
	err := Retry(ctx, p.Attempts, p.Delay, func() (err error) {
		v, err = fn()
		return err
	})
	return v, err
}

type retrying struct {
	Gateway
	policy RetryPolicy
}

// WithRetry wraps g so Load and Save retry transient failures. The editor
// never retries by itself; hosts opt in here.
func WithRetry(g Gateway, policy RetryPolicy) Gateway {
	return &retrying{Gateway: g, policy: policy}
}

func (r *retrying) Load(ctx context.Context, tenantID string) (*document.Snapshot, error) {
	return retryValue(ctx, r.policy, func() (*document.Snapshot, error) { return r.Gateway.Load(ctx, tenantID) })
}

func (r *retrying) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	return retryValue(ctx, r.policy, func() (SaveResult, error) { return r.Gateway.Save(ctx, req) })
}
