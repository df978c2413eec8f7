package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts: attempts,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestSucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig(5)
	cfg.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	got, err := DoWithResult(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "conn", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "conn" {
		t.Errorf("result = %q, want conn", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retried)
	}
}

func TestGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPermanentStopsImmediately(t *testing.T) {
	denied := errors.New("530 login incorrect")
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(5), func() (int, error) {
		calls++
		return 0, Permanent(denied)
	})
	if err != denied {
		t.Fatalf("err = %v, want the unwrapped permanent error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(0)
	cfg.InitialWait = time.Hour
	cfg.MaxWait = time.Hour

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := DoWithResult(ctx, cfg, func() (string, error) {
		return "", errors.New("unreachable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
