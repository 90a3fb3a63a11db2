package storage

import (
	"context"

	"nft-sales-alerts/internal/watermark"
)

// WatermarkRepository binds the sync_state table to one collection so it can
// stand in wherever a watermark.Store is expected.
type WatermarkRepository struct {
	store      *Store
	collection string
}

// NewWatermarkRepository constructs a collection-scoped watermark store.
func NewWatermarkRepository(store *Store, collection string) *WatermarkRepository {
	return &WatermarkRepository{store: store, collection: collection}
}

func (r *WatermarkRepository) Load(ctx context.Context) (int64, bool, error) {
	return r.store.GetWatermark(ctx, r.collection)
}

func (r *WatermarkRepository) Save(ctx context.Context, millis int64) error {
	return r.store.UpsertWatermark(ctx, r.collection, millis)
}

var _ watermark.Store = (*WatermarkRepository)(nil)
