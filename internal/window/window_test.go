package window

import (
	"testing"
	"time"

	"nft-sales-alerts/internal/opensea"
)

func eventAt(name string, millis int64) opensea.RawEvent {
	return opensea.RawEvent{
		Kind:       opensea.KindSale,
		AssetName:  name,
		OccurredAt: time.UnixMilli(millis).UTC(),
	}
}

func fixedNow(millis int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(millis).UTC() }
}

func TestSelectNewPrefix(t *testing.T) {
	page := []opensea.RawEvent{
		eventAt("A", 100),
		eventAt("B", 90),
		eventAt("C", 80),
	}

	selected, watermark := SelectNew(page, 85, fixedNow(1000))

	if len(selected) != 2 {
		t.Fatalf("expected 2 selected events, got %d", len(selected))
	}
	if selected[0].AssetName != "B" || selected[1].AssetName != "A" {
		t.Fatalf("selection must be oldest-first: %v, %v", selected[0].AssetName, selected[1].AssetName)
	}
	if watermark != 101 {
		t.Fatalf("expected watermark 101, got %d", watermark)
	}
}

func TestSelectNewEmptyPage(t *testing.T) {
	selected, watermark := SelectNew(nil, 85, fixedNow(5000))
	if len(selected) != 0 {
		t.Fatalf("empty page should select nothing, got %d", len(selected))
	}
	if watermark != 5000 {
		t.Fatalf("empty page should advance watermark to now, got %d", watermark)
	}
}

func TestSelectNewBoundaryExcluded(t *testing.T) {
	page := []opensea.RawEvent{eventAt("A", 85)}

	selected, watermark := SelectNew(page, 85, fixedNow(1000))
	if len(selected) != 0 {
		t.Fatal("event at exactly the watermark must be excluded")
	}
	if watermark != 86 {
		t.Fatalf("expected watermark 86, got %d", watermark)
	}
}

func TestSelectNewIdempotentAcrossCycles(t *testing.T) {
	page := []opensea.RawEvent{
		eventAt("A", 100),
		eventAt("B", 90),
	}

	_, first := SelectNew(page, 85, fixedNow(1000))
	selected, second := SelectNew(page, first, fixedNow(1000))

	if len(selected) != 0 {
		t.Fatalf("no event may be selected twice with a stable page, got %d", len(selected))
	}
	if second != first {
		t.Fatalf("stable page should leave the watermark unchanged: %d -> %d", first, second)
	}
}

func TestSelectNewNeverRegresses(t *testing.T) {
	page := []opensea.RawEvent{eventAt("A", 50)}

	_, watermark := SelectNew(page, 85, fixedNow(40))
	if watermark < 85 {
		t.Fatalf("watermark regressed to %d", watermark)
	}

	_, watermark = SelectNew(nil, 85, fixedNow(40))
	if watermark < 85 {
		t.Fatalf("watermark regressed to %d on empty page", watermark)
	}
}

func TestSelectNewSkipsUnparseableTimestamps(t *testing.T) {
	page := []opensea.RawEvent{
		eventAt("A", 100),
		{Kind: opensea.KindSale, AssetName: "broken"},
		eventAt("C", 90),
	}

	selected, watermark := SelectNew(page, 85, fixedNow(1000))
	if len(selected) != 2 {
		t.Fatalf("scan must continue past an unparseable event, got %d selected", len(selected))
	}
	if selected[0].AssetName != "C" || selected[1].AssetName != "A" {
		t.Fatalf("unexpected selection order: %v, %v", selected[0].AssetName, selected[1].AssetName)
	}
	if watermark != 101 {
		t.Fatalf("expected watermark 101, got %d", watermark)
	}
}

func TestSelectNewAllUnparseable(t *testing.T) {
	page := []opensea.RawEvent{{AssetName: "x"}, {AssetName: "y"}}

	selected, watermark := SelectNew(page, 85, fixedNow(900))
	if len(selected) != 0 {
		t.Fatal("nothing should be selected")
	}
	if watermark != 900 {
		t.Fatalf("fully unparseable page should behave like an empty one, got %d", watermark)
	}
}
