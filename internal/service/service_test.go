package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nft-sales-alerts/internal/alerting"
	"nft-sales-alerts/internal/opensea"
)

type fakeFetcher struct {
	events []opensea.RawEvent
	err    error
}

func (f *fakeFetcher) FetchEvents(ctx context.Context) ([]opensea.RawEvent, error) {
	return f.events, f.err
}

type memStore struct {
	millis int64
	ok     bool
	saves  int
	err    error
}

func (s *memStore) Load(ctx context.Context) (int64, bool, error) {
	return s.millis, s.ok, nil
}

func (s *memStore) Save(ctx context.Context, millis int64) error {
	if s.err != nil {
		return s.err
	}
	s.millis = millis
	s.ok = true
	s.saves++
	return nil
}

type fakeDeliverer struct {
	report alerting.Report
	seen   []alerting.Notification
}

func (d *fakeDeliverer) Deliver(ctx context.Context, channels []alerting.Channel, notifications []alerting.Notification) alerting.Report {
	d.seen = append(d.seen, notifications...)
	if d.report.Attempted == 0 {
		return alerting.Report{
			Attempted: len(notifications),
			Delivered: len(notifications),
		}
	}
	return d.report
}

func eventAt(name string, millis int64) opensea.RawEvent {
	return opensea.RawEvent{
		Kind:       opensea.KindSale,
		AssetName:  name,
		OccurredAt: time.UnixMilli(millis).UTC(),
	}
}

func newTestService(fetcher *fakeFetcher, deliverer *fakeDeliverer, store *memStore, opts Options) *Service {
	svc := New(
		opts,
		fetcher,
		alerting.NewFormatter(alerting.FormatterOptions{}),
		deliverer,
		nil,
		store,
		nil,
		zerolog.Nop(),
	)
	return svc
}

func TestRunCycleDeliversAndAdvancesWatermark(t *testing.T) {
	fetcher := &fakeFetcher{events: []opensea.RawEvent{
		eventAt("A", 100),
		eventAt("B", 90),
		eventAt("C", 80),
	}}
	deliverer := &fakeDeliverer{}
	store := &memStore{millis: 85, ok: true}

	svc := newTestService(fetcher, deliverer, store, Options{})

	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}

	if len(deliverer.seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(deliverer.seen))
	}
	if deliverer.seen[0].Title != "B sold!" || deliverer.seen[1].Title != "A sold!" {
		t.Fatalf("notifications must be oldest-first: %q, %q", deliverer.seen[0].Title, deliverer.seen[1].Title)
	}
	if store.millis != 101 {
		t.Fatalf("expected watermark 101, got %d", store.millis)
	}
}

func TestRunCycleFetchErrorKeepsWatermark(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("network down")}
	store := &memStore{millis: 85, ok: true}

	svc := newTestService(fetcher, &fakeDeliverer{}, store, Options{})

	if err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("fetch failure should fail the cycle")
	}
	if store.saves != 0 || store.millis != 85 {
		t.Fatalf("watermark must not move on a failed cycle: %d (saves %d)", store.millis, store.saves)
	}
}

func TestRunCycleTotalDeliveryFailureKeepsWatermark(t *testing.T) {
	fetcher := &fakeFetcher{events: []opensea.RawEvent{eventAt("A", 100)}}
	deliverer := &fakeDeliverer{report: alerting.Report{Attempted: 2, Failed: 2}}
	store := &memStore{millis: 85, ok: true}

	svc := newTestService(fetcher, deliverer, store, Options{})

	if err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("total delivery failure should fail the cycle")
	}
	if store.saves != 0 {
		t.Fatal("watermark must not advance when nothing was delivered")
	}
}

func TestRunCyclePartialDeliveryFailureAdvances(t *testing.T) {
	fetcher := &fakeFetcher{events: []opensea.RawEvent{eventAt("A", 100)}}
	deliverer := &fakeDeliverer{report: alerting.Report{Attempted: 2, Delivered: 1, Failed: 1}}
	store := &memStore{millis: 85, ok: true}

	svc := newTestService(fetcher, deliverer, store, Options{})

	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("partial failure must not fail the cycle: %v", err)
	}
	if store.millis != 101 {
		t.Fatalf("expected watermark 101, got %d", store.millis)
	}
}

func TestRunCycleEmptyPagePersistsWatermark(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := &memStore{millis: 85, ok: true}

	svc := newTestService(fetcher, &fakeDeliverer{}, store, Options{})

	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("empty page should still succeed: %v", err)
	}
	if store.saves != 1 || store.millis <= 85 {
		t.Fatalf("empty page must still advance the watermark, got %d (saves %d)", store.millis, store.saves)
	}
}

func TestRunCycleLookbackDefault(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := &memStore{}

	svc := newTestService(fetcher, &fakeDeliverer{}, store, Options{Lookback: time.Hour})

	before := time.Now().UnixMilli()
	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}
	if store.millis < before {
		t.Fatalf("first cycle on an empty page should land the watermark at now, got %d", store.millis)
	}
}

func TestRunCycleAllowList(t *testing.T) {
	fetcher := &fakeFetcher{events: []opensea.RawEvent{
		eventAt("Doodle #7", 100),
		eventAt("Other Thing", 95),
	}}
	deliverer := &fakeDeliverer{}
	store := &memStore{millis: 50, ok: true}

	svc := newTestService(fetcher, deliverer, store, Options{AllowedNames: []string{"doodle #7"}})

	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}
	if len(deliverer.seen) != 1 || deliverer.seen[0].Title != "Doodle #7 sold!" {
		t.Fatalf("allow-list should keep only matching assets: %#v", deliverer.seen)
	}
	if store.millis != 101 {
		t.Fatalf("filtering must not hold the watermark back, got %d", store.millis)
	}
}
