// Package window selects the not-yet-notified slice of an events page using a
// persisted watermark. The events endpoint has no reliable server-side "since"
// filter, so the boundary between seen and unseen events is computed here.
package window

import (
	"time"

	"nft-sales-alerts/internal/opensea"
)

// SelectNew walks a newest-first events page and returns the events strictly
// newer than watermark (epoch milliseconds), reordered oldest-first for
// delivery, together with the advanced watermark.
//
// The scan stops at the first event at or older than the watermark; anything
// beyond that point is presumed already seen. The new watermark is the newest
// event's timestamp plus one millisecond so an event whose timestamp collides
// with the boundary is not reprocessed next cycle. An empty page advances the
// watermark to now, which bounds replay cost when the collection is quiet.
// Events whose timestamp failed normalization upstream are skipped without
// stopping the scan. The returned watermark never regresses below the input.
func SelectNew(events []opensea.RawEvent, watermark int64, now func() time.Time) ([]opensea.RawEvent, int64) {
	if now == nil {
		now = time.Now
	}

	if len(events) == 0 {
		return nil, maxMillis(watermark, now().UnixMilli())
	}

	candidate := int64(0)
	haveCandidate := false
	var selected []opensea.RawEvent

	for _, event := range events {
		millis := event.OccurredAtMillis()
		if millis == 0 {
			continue
		}
		if !haveCandidate {
			candidate = millis + 1
			haveCandidate = true
		}
		if millis <= watermark {
			break
		}
		selected = append(selected, event)
	}

	if !haveCandidate {
		// Every event on the page was unparseable; treat like an empty page.
		return nil, maxMillis(watermark, now().UnixMilli())
	}

	// Chat delivery should read top-to-bottom in event order.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}

	return selected, maxMillis(watermark, candidate)
}

func maxMillis(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
