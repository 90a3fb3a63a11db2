// Package watermark persists the boundary timestamp separating
// already-notified from not-yet-notified events across process invocations.
package watermark

import "context"

// Store abstracts watermark persistence. A successful Save must be durably
// visible to the next Load in the same deployment.
type Store interface {
	// Load returns the stored watermark in epoch milliseconds. ok is false
	// when no watermark has ever been saved.
	Load(ctx context.Context) (millis int64, ok bool, err error)
	// Save durably records the watermark.
	Save(ctx context.Context, millis int64) error
}
