package alerting

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Report summarises one delivery batch. Each (notification, channel) pair
// counts as one attempt.
type Report struct {
	Attempted int
	Delivered int
	Failed    int
}

// AllFailed reports whether a non-empty batch delivered nothing anywhere,
// which usually means a platform-wide outage rather than per-message trouble.
func (r Report) AllFailed() bool {
	return r.Attempted > 0 && r.Delivered == 0
}

// Fanout sends each notification to every configured channel. Channels run
// concurrently; within one channel notifications go out sequentially so the
// destination reads top-to-bottom in event order. A failed send is logged and
// isolated from the rest of the batch.
type Fanout struct {
	logger zerolog.Logger
}

// NewFanout constructs the delivery fan-out.
func NewFanout(logger zerolog.Logger) *Fanout {
	return &Fanout{logger: logger.With().Str("component", "fanout").Logger()}
}

// Deliver issues all sends and waits for every outcome before returning.
func (f *Fanout) Deliver(ctx context.Context, channels []Channel, notifications []Notification) Report {
	if len(channels) == 0 || len(notifications) == 0 {
		return Report{}
	}

	type channelResult struct {
		delivered int
		failed    int
	}

	results := make([]channelResult, len(channels))
	var wg sync.WaitGroup

	for i, channel := range channels {
		wg.Add(1)
		go func(i int, channel Channel) {
			defer wg.Done()
			for _, note := range notifications {
				if err := channel.Send(ctx, note); err != nil {
					results[i].failed++
					f.logger.Error().Err(err).
						Str("channel", channel.Name()).
						Str("title", note.Title).
						Msg("delivery failed")
					continue
				}
				results[i].delivered++
			}
		}(i, channel)
	}
	wg.Wait()

	report := Report{Attempted: len(channels) * len(notifications)}
	for _, result := range results {
		report.Delivered += result.delivered
		report.Failed += result.failed
	}

	f.logger.Info().
		Int("attempted", report.Attempted).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Msg("delivery batch finished")

	return report
}
