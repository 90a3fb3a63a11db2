package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotifiedEvent is one marketplace event that was delivered to at least one
// channel, kept for inspection and export.
type NotifiedEvent struct {
	ID         int64
	EventTS    time.Time
	Kind       string
	Collection string
	AssetName  string
	TokenID    string
	AmountEth  decimal.Decimal
	Buyer      string
	Seller     string
	Permalink  string
	CreatedAt  time.Time
}

// SyncState is the persisted watermark row for one collection.
type SyncState struct {
	Collection      string
	WatermarkMillis int64
	UpdatedAt       time.Time
}
