package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CycleFunc runs one fetch-filter-format-deliver-persist pass.
type CycleFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
	// MaxFailures is the number of consecutive failed cycles tolerated before
	// the loop gives up. Zero retries forever.
	MaxFailures int
	// MaxBackoff caps the sleep between retries of a failing cycle.
	MaxBackoff time.Duration
}

// Scheduler drives the polling loop. A failed cycle does not terminate the
// loop; the next attempt is delayed by the interval doubled per consecutive
// failure, capped at MaxBackoff.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.MaxBackoff < opts.Interval {
		opts.MaxBackoff = opts.Interval
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the cycle function until ctx is cancelled or the
// consecutive failure budget is exhausted.
func (s *Scheduler) Run(ctx context.Context, cycle CycleFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	failures := 0
	for {
		if err := cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			s.logger.Error().Err(err).Int("consecutive_failures", failures).Msg("cycle failed")
			if s.opts.MaxFailures > 0 && failures >= s.opts.MaxFailures {
				return fmt.Errorf("giving up after %d consecutive cycle failures: %w", failures, err)
			}
		} else {
			failures = 0
		}

		delay := s.nextDelay(failures)
		s.logger.Debug().Dur("sleep", delay).Msg("waiting for next cycle")
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *Scheduler) nextDelay(failures int) time.Duration {
	delay := s.opts.Interval
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= s.opts.MaxBackoff {
			return s.opts.MaxBackoff
		}
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
