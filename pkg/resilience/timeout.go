package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

// WithTimeout runs fn with a context cancelled after timeout. An expired
// deadline is reported as apperrors.ErrTimeout wrapping
// context.DeadlineExceeded; cancellation of ctx itself is passed through.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()

	var err error
	select {
	case err = <-done:
		if err == nil || !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	case <-timeoutCtx.Done():
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	return fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
}
