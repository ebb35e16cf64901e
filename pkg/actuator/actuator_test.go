package actuator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestActuator(cfg Config, rec *sleepRecorder) *Actuator {
	return New(cfg,
		WithSleep(rec.sleep),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestPerform_SuccessFirstTry(t *testing.T) {
	rec := &sleepRecorder{}
	a := newTestActuator(Config{}, rec)

	calls := 0
	err := a.Perform(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	if len(rec.waits) != 0 {
		t.Fatalf("waits=%v, want none", rec.waits)
	}
}

func TestPerform_RetryBound(t *testing.T) {
	rec := &sleepRecorder{}
	a := newTestActuator(Config{MaxAttempts: 3, Margin: 2 * time.Second}, rec)

	calls := 0
	err := a.Perform(context.Background(), func(context.Context) error {
		calls++
		return &RateLimitError{RetryAfter: 10 * time.Second, Message: "slow down"}
	})
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("err=%v, want ErrAttemptsExhausted", err)
	}
	if !IsRateLimit(err) {
		t.Fatalf("expected last rate limit error to be wrapped, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
	if len(rec.waits) != 2 {
		t.Fatalf("waits=%d, want 2 (between attempts only)", len(rec.waits))
	}
	for i, w := range rec.waits {
		if w != 12*time.Second {
			t.Fatalf("wait[%d]=%s, want 12s", i, w)
		}
	}
}

func TestPerform_RecoversAfterRateLimit(t *testing.T) {
	rec := &sleepRecorder{}
	a := newTestActuator(Config{MaxAttempts: 3, Margin: time.Second}, rec)

	calls := 0
	err := a.Perform(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &RateLimitError{RetryAfter: 3 * time.Second}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d, want 2", calls)
	}
	if len(rec.waits) != 1 || rec.waits[0] != 4*time.Second {
		t.Fatalf("waits=%v, want [4s]", rec.waits)
	}
}

func TestPerform_NonRetryable(t *testing.T) {
	rec := &sleepRecorder{}
	a := newTestActuator(Config{}, rec)

	boom := errors.New("forbidden")
	calls := 0
	err := a.Perform(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	if len(rec.waits) != 0 {
		t.Fatalf("waits=%v, want none", rec.waits)
	}
}

func TestPerform_DefaultWaitWhenNoHint(t *testing.T) {
	rec := &sleepRecorder{}
	a := newTestActuator(Config{MaxAttempts: 2, Margin: time.Second, DefaultWait: 30 * time.Second}, rec)

	_ = a.Perform(context.Background(), func(context.Context) error {
		return &RateLimitError{}
	})
	if len(rec.waits) != 1 || rec.waits[0] != 31*time.Second {
		t.Fatalf("waits=%v, want [31s]", rec.waits)
	}
}

func TestPerform_WrappedRateLimit(t *testing.T) {
	rec := &sleepRecorder{}
	a := newTestActuator(Config{MaxAttempts: 2, Margin: -1}, rec)

	calls := 0
	_ = a.Perform(context.Background(), func(context.Context) error {
		calls++
		return errors.Join(errors.New("reply failed"), &RateLimitError{RetryAfter: time.Minute})
	})
	if calls != 2 {
		t.Fatalf("calls=%d, want 2", calls)
	}
	if rec.waits[0] != time.Minute {
		t.Fatalf("wait=%s, want 1m0s with no margin", rec.waits[0])
	}
}

func TestPerform_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := New(Config{MaxAttempts: 3},
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return sleepContext(ctx, d)
		}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	calls := 0
	err := a.Perform(ctx, func(context.Context) error {
		calls++
		return &RateLimitError{RetryAfter: time.Hour}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}
