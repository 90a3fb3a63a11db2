package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSchedulerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sched := New(Options{Interval: time.Millisecond}, zerolog.Nop())

	calls := 0
	err := sched.Run(ctx, func(ctx context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if calls < 3 {
		t.Fatalf("expected at least 3 cycles, got %d", calls)
	}
}

func TestSchedulerGivesUpAfterMaxFailures(t *testing.T) {
	sched := New(Options{Interval: time.Millisecond, MaxFailures: 3}, zerolog.Nop())

	calls := 0
	err := sched.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected the loop to give up")
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestSchedulerRecoversAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sched := New(Options{Interval: time.Millisecond, MaxFailures: 3}, zerolog.Nop())

	calls := 0
	err := sched.Run(ctx, func(ctx context.Context) error {
		calls++
		switch calls {
		case 1, 3:
			// Alternating failures never reach the consecutive budget.
			return errors.New("transient")
		case 5:
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("alternating failures should not terminate the loop: %v", err)
	}
}

func TestNextDelayBackoff(t *testing.T) {
	sched := New(Options{Interval: time.Second, MaxBackoff: 5 * time.Second}, zerolog.Nop())

	if got := sched.nextDelay(0); got != time.Second {
		t.Fatalf("no failures should use the base interval, got %s", got)
	}
	if got := sched.nextDelay(1); got != 2*time.Second {
		t.Fatalf("one failure should double the delay, got %s", got)
	}
	if got := sched.nextDelay(10); got != 5*time.Second {
		t.Fatalf("delay should cap at max backoff, got %s", got)
	}
}
