package opensea

import "time"

// EventKind identifies the marketplace event category being watched.
type EventKind string

const (
	KindSale    EventKind = "sale"
	KindListing EventKind = "listing"
	KindBid     EventKind = "bid"
)

// apiEventType maps an EventKind to the wire value the events endpoint expects.
func (k EventKind) apiEventType() string {
	switch k {
	case KindListing:
		return "created"
	case KindBid:
		return "bid_entered"
	default:
		return "successful"
	}
}

// Valid reports whether k is a recognized kind.
func (k EventKind) Valid() bool {
	switch k {
	case KindSale, KindListing, KindBid:
		return true
	}
	return false
}

// RawEvent is the normalized internal representation of one marketplace event.
// String fields are empty when the source omitted them; OccurredAt is the zero
// time when the source timestamp could not be normalized.
type RawEvent struct {
	Kind               EventKind
	ID                 string
	OccurredAt         time.Time
	RawTimestamp       string
	AssetName          string
	TokenID            string
	AmountWei          string
	Buyer              string
	Seller             string
	Bidder             string
	ImageURL           string
	CollectionImageURL string
	Permalink          string
	PaymentSymbol      string
}

// OccurredAtMillis returns the normalized event time in epoch milliseconds,
// or 0 when normalization failed.
func (e RawEvent) OccurredAtMillis() int64 {
	if e.OccurredAt.IsZero() {
		return 0
	}
	return e.OccurredAt.UnixMilli()
}
