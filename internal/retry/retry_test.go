package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	calls := 0
	got, err := Do(context.Background(), p, func() (int, error) {
		calls++
		return 42, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
	if len(slept) != 0 {
		t.Errorf("expected no sleeps, got %v", slept)
	}
}

func TestDoBackoffSequence(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	failure := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), p, func() (int, error) {
		calls++
		return 0, failure
	}, nil)
	if !errors.Is(err, failure) {
		t.Fatalf("expected last error back, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}

	// 1s then 2s, and no sleep after the final attempt.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("expected sleeps %v, got %v", want, slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, want[i], slept[i])
		}
	}
}

func TestDoRecoveryRunsBeforeEverySleep(t *testing.T) {
	var order []string
	p := Policy{
		MaxAttempts: 2,
		BackoffBase: time.Second,
		Sleep:       func(time.Duration) { order = append(order, "sleep") },
	}

	_, err := Do(context.Background(), p, func() (int, error) {
		order = append(order, "op")
		return 0, errors.New("boom")
	}, func(error) error {
		order = append(order, "recover")
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}

	want := []string{"op", "recover", "sleep", "op", "recover"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestDoRecoveryErrorHaltsLoop(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxAttempts: 5,
		BackoffBase: time.Second,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	fatal := errors.New("file is gone")
	calls := 0
	_, err := Do(context.Background(), p, func() (int, error) {
		calls++
		return 0, errors.New("not found")
	}, func(error) error {
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected recovery error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected loop to halt after 1 attempt, got %d", calls)
	}
	if len(slept) != 0 {
		t.Errorf("expected no sleeps before halting, got %v", slept)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 5,
		BackoffBase: time.Second,
		Sleep:       func(time.Duration) {},
	}

	calls := 0
	_, err := Do(ctx, p, func() (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}
