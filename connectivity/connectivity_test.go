package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("openai|https://api.openai.com", BreakerConfig{Threshold: 3})

	calls := 0
	fail := func() error { calls++; return errUpstream }
	for i := 0; i < 3; i++ {
		if err := b.Do(fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	err := b.Do(fail)
	var open *ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if open.Upstream != "openai|https://api.openai.com" {
		t.Fatalf("upstream = %q", open.Upstream)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, fn ran while open", calls)
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker("x", BreakerConfig{
		Threshold:    1,
		ResetTimeout: 10 * time.Second,
		HalfOpenMax:  2,
		now:          func() time.Time { return now },
	})

	_ = b.Do(func() error { return errUpstream })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	now = now.Add(11 * time.Second)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("state = %s, want half-open", b.State())
	}
	ok := func() error { return nil }
	_ = b.Do(ok)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("one success should not close, state = %s", b.State())
	}
	_ = b.Do(ok)
	if b.State() != BreakerClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker("x", BreakerConfig{Threshold: 1, ResetTimeout: time.Second, now: func() time.Time { return now }})
	_ = b.Do(func() error { return errUpstream })
	now = now.Add(2 * time.Second)
	_ = b.Do(func() error { return errUpstream })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	clientErr := errors.New("bad request")
	b := NewBreaker("x", BreakerConfig{
		Threshold: 1,
		IsFailure: func(err error) bool { return err != nil && !errors.Is(err, clientErr) },
	})
	_ = b.Do(func() error { return clientErr })
	if b.State() != BreakerClosed {
		t.Fatalf("client errors should not trip the breaker, state = %s", b.State())
	}
}

func TestBreaker_Nil(t *testing.T) {
	var b *Breaker
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("nil breaker: %v", err)
	}
}

func TestBreakerSet(t *testing.T) {
	s := NewBreakerSet(BreakerConfig{Threshold: 1})
	a := s.Get("anthropic|")
	if s.Get("anthropic|") != a {
		t.Fatal("Get should return the same breaker for a key")
	}
	_ = a.Do(func() error { return errUpstream })
	_ = s.Get("openai|")

	states := s.States()
	if states["anthropic|"] != "open" || states["openai|"] != "closed" {
		t.Fatalf("states = %v", states)
	}
	a.Reset()
	if a.State() != BreakerClosed {
		t.Fatalf("after Reset state = %s", a.State())
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, func(context.Context) error {
			calls++
			if calls < 3 {
				return errUpstream
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}, func(context.Context) error {
			calls++
			return errUpstream
		})
		if !errors.Is(err, errUpstream) || calls != 2 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("zero retries", func(t *testing.T) {
		calls := 0
		_ = Retry(ctx, RetryPolicy{}, func(context.Context) error { calls++; return errUpstream })
		if calls != 1 {
			t.Fatalf("calls = %d", calls)
		}
	})

	t.Run("non-retryable stops", func(t *testing.T) {
		calls := 0
		_ = Retry(ctx, RetryPolicy{
			MaxRetries: 3,
			Backoff:    time.Millisecond,
			Retryable:  func(error) bool { return false },
		}, func(context.Context) error { calls++; return errUpstream })
		if calls != 1 {
			t.Fatalf("calls = %d", calls)
		}
	})

	t.Run("open circuit is not retried", func(t *testing.T) {
		calls := 0
		_ = Retry(ctx, RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}, func(context.Context) error {
			calls++
			return &ErrCircuitOpen{Upstream: "x"}
		})
		if calls != 1 {
			t.Fatalf("calls = %d", calls)
		}
	})

	t.Run("cancelled context ends backoff", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		start := time.Now()
		err := Retry(cctx, RetryPolicy{MaxRetries: 5, Backoff: time.Hour}, func(context.Context) error {
			calls++
			cancel()
			return errUpstream
		})
		if !errors.Is(err, errUpstream) || calls != 1 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
		if time.Since(start) > 5*time.Second {
			t.Fatal("Retry waited out the backoff despite cancellation")
		}
	})
}
