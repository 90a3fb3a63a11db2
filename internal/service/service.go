package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nft-sales-alerts/internal/alerting"
	"nft-sales-alerts/internal/opensea"
	"nft-sales-alerts/internal/storage"
	"nft-sales-alerts/internal/watermark"
	"nft-sales-alerts/internal/window"
)

// EventFetcher retrieves one page of marketplace events, newest first.
type EventFetcher interface {
	FetchEvents(ctx context.Context) ([]opensea.RawEvent, error)
}

// Deliverer fans notifications out to channels.
type Deliverer interface {
	Deliver(ctx context.Context, channels []alerting.Channel, notifications []alerting.Notification) alerting.Report
}

// Options carry the cycle parameters that are not injected dependencies.
type Options struct {
	Collection   string
	Lookback     time.Duration
	PageLimit    int
	AllowedNames []string
}

// Service orchestrates one polling cycle: fetch, select, format, deliver,
// persist.
type Service struct {
	opts       Options
	fetcher    EventFetcher
	formatter  *alerting.Formatter
	deliverer  Deliverer
	channels   []alerting.Channel
	watermarks watermark.Store
	history    storage.EventHistoryStore
	logger     zerolog.Logger
	now        func() time.Time
}

// New constructs the notification service. history may be nil when no
// database is configured.
func New(
	opts Options,
	fetcher EventFetcher,
	formatter *alerting.Formatter,
	deliverer Deliverer,
	channels []alerting.Channel,
	watermarks watermark.Store,
	history storage.EventHistoryStore,
	logger zerolog.Logger,
) *Service {
	if opts.Lookback <= 0 {
		opts.Lookback = time.Hour
	}
	return &Service{
		opts:       opts,
		fetcher:    fetcher,
		formatter:  formatter,
		deliverer:  deliverer,
		channels:   channels,
		watermarks: watermarks,
		history:    history,
		logger:     logger.With().Str("component", "service").Logger(),
		now:        time.Now,
	}
}

// RunCycle executes one fetch-filter-format-deliver-persist pass. On error the
// watermark is left untouched so the next cycle re-scans the same window.
func (s *Service) RunCycle(ctx context.Context) error {
	mark, ok, err := s.watermarks.Load(ctx)
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}
	if !ok {
		mark = s.now().Add(-s.opts.Lookback).UnixMilli()
		s.logger.Info().Int64("watermark_ms", mark).Msg("no stored watermark; starting from lookback window")
	}

	events, err := s.fetcher.FetchEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	if s.opts.PageLimit > 0 && len(events) >= s.opts.PageLimit {
		// One page per cycle; a full page may hide older unseen events.
		s.logger.Warn().Int("events", len(events)).
			Msg("events page is full; events beyond the page limit will be missed")
	}

	selected, newMark := window.SelectNew(events, mark, s.now)
	selected = s.applyAllowList(selected)

	if len(selected) > 0 {
		notifications := make([]alerting.Notification, 0, len(selected))
		for _, event := range selected {
			notifications = append(notifications, s.formatter.Format(event))
		}

		report := s.deliverer.Deliver(ctx, s.channels, notifications)
		if report.AllFailed() {
			return fmt.Errorf("delivery failed on every channel (%d attempts); watermark not advanced", report.Attempted)
		}
	}

	if err := s.watermarks.Save(ctx, newMark); err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}

	s.recordHistory(ctx, selected)

	s.logger.Info().
		Int("page", len(events)).
		Int("notified", len(selected)).
		Int64("watermark_ms", newMark).
		Msg("cycle complete")

	return nil
}

// applyAllowList drops events whose asset name is not in the configured
// allow-list. An empty list allows everything.
func (s *Service) applyAllowList(events []opensea.RawEvent) []opensea.RawEvent {
	if len(s.opts.AllowedNames) == 0 {
		return events
	}

	kept := events[:0:0]
	for _, event := range events {
		for _, allowed := range s.opts.AllowedNames {
			if strings.EqualFold(event.AssetName, allowed) {
				kept = append(kept, event)
				break
			}
		}
	}
	return kept
}

// recordHistory persists notified events best-effort; a storage failure never
// fails the cycle.
func (s *Service) recordHistory(ctx context.Context, events []opensea.RawEvent) {
	if s.history == nil || len(events) == 0 {
		return
	}

	for _, event := range events {
		record := storage.NotifiedEvent{
			EventTS:    event.OccurredAt,
			Kind:       string(event.Kind),
			Collection: s.opts.Collection,
			AssetName:  event.AssetName,
			TokenID:    event.TokenID,
			AmountEth:  alerting.EtherAmount(event.AmountWei),
			Buyer:      event.Buyer,
			Seller:     event.Seller,
			Permalink:  event.Permalink,
		}
		if _, err := s.history.InsertNotifiedEvent(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("asset", event.AssetName).Msg("failed to record notified event")
		}
	}
}
