package connectivity

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryPolicy controls Retry.
type RetryPolicy struct {
	MaxRetries int           // attempts after the first; 0 disables retries
	Backoff    time.Duration // wait before the first retry, doubled each time. Default: 500ms.

	// Retryable reports whether err is worth another attempt. Nil retries
	// everything except context errors and open circuits.
	Retryable func(error) bool

	Logger *slog.Logger // nil logs nothing
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. Backoff waits end early when ctx is done.
func Retry(ctx context.Context, p RetryPolicy, fn func(context.Context) error) error {
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || ctx.Err() != nil || !retryable(p, err) {
			return err
		}
		wait := backoff << attempt
		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "connectivity: retrying call",
				"attempt", attempt+1, "max_retries", p.MaxRetries,
				"backoff_ms", wait.Milliseconds(), "error", err)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

func retryable(p RetryPolicy, err error) bool {
	var open *ErrCircuitOpen
	if errors.As(err, &open) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return true
}
