package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertNotifiedEventSQL = `INSERT INTO notified_events (
        event_ts,
        kind,
        collection,
        asset_name,
        token_id,
        amount_eth,
        buyer,
        seller,
        permalink
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id;`

	listRecentEventsSQL = `SELECT
        id,
        event_ts,
        kind,
        collection,
        asset_name,
        token_id,
        amount_eth,
        buyer,
        seller,
        permalink,
        created_at
    FROM notified_events
    ORDER BY event_ts DESC
    LIMIT $1;`

	listEventsBetweenSQL = `SELECT
        id,
        event_ts,
        kind,
        collection,
        asset_name,
        token_id,
        amount_eth,
        buyer,
        seller,
        permalink,
        created_at
    FROM notified_events
    WHERE event_ts >= $1
      AND event_ts < $2
    ORDER BY event_ts;`

	countEventsSQL = `SELECT COUNT(*) FROM notified_events;`

	getWatermarkSQL = `SELECT watermark_ms FROM sync_state WHERE collection = $1;`

	upsertWatermarkSQL = `INSERT INTO sync_state (collection, watermark_ms, updated_at)
    VALUES ($1, $2, now())
    ON CONFLICT (collection) DO UPDATE
    SET watermark_ms = EXCLUDED.watermark_ms,
        updated_at   = now();`
)

// EventHistoryStore defines operations for notified-event persistence.
type EventHistoryStore interface {
	InsertNotifiedEvent(ctx context.Context, event NotifiedEvent) (int64, error)
	ListRecentEvents(ctx context.Context, limit int) ([]NotifiedEvent, error)
	ListEventsBetween(ctx context.Context, from, to time.Time) ([]NotifiedEvent, error)
	CountEvents(ctx context.Context) (int64, error)
}

// Store aggregates access to notified events and sync state.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertNotifiedEvent records one delivered event.
func (s *Store) InsertNotifiedEvent(ctx context.Context, event NotifiedEvent) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertNotifiedEventSQL,
		event.EventTS,
		event.Kind,
		event.Collection,
		event.AssetName,
		event.TokenID,
		event.AmountEth.String(),
		event.Buyer,
		event.Seller,
		event.Permalink,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert notified event: %w", scanErr)
	}
	return id, nil
}

// ListRecentEvents lists the most recent notified events, newest first.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]NotifiedEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()

	return collectEvents(rows, limit)
}

// ListEventsBetween lists notified events within a time window, oldest first.
func (s *Store) ListEventsBetween(ctx context.Context, from, to time.Time) ([]NotifiedEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listEventsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list events between: %w", queryErr)
	}
	defer rows.Close()

	return collectEvents(rows, 0)
}

// CountEvents counts stored notified events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countEventsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count events: %w", scanErr)
	}
	return count, nil
}

// GetWatermark reads the persisted watermark for a collection.
func (s *Store) GetWatermark(ctx context.Context, collection string) (int64, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, false, err
	}

	var millis int64
	scanErr := pool.QueryRow(ctx, getWatermarkSQL, collection).Scan(&millis)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get watermark: %w", scanErr)
	}
	return millis, true, nil
}

// UpsertWatermark durably records the watermark for a collection.
func (s *Store) UpsertWatermark(ctx context.Context, collection string, millis int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertWatermarkSQL, collection, millis); execErr != nil {
		return fmt.Errorf("upsert watermark: %w", execErr)
	}
	return nil
}

func collectEvents(rows pgx.Rows, sizeHint int) ([]NotifiedEvent, error) {
	events := make([]NotifiedEvent, 0, sizeHint)
	for rows.Next() {
		event, scanErr := scanNotifiedEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

func scanNotifiedEvent(rows pgx.Rows) (NotifiedEvent, error) {
	var (
		event     NotifiedEvent
		amountStr string
	)

	if err := rows.Scan(
		&event.ID,
		&event.EventTS,
		&event.Kind,
		&event.Collection,
		&event.AssetName,
		&event.TokenID,
		&amountStr,
		&event.Buyer,
		&event.Seller,
		&event.Permalink,
		&event.CreatedAt,
	); err != nil {
		return NotifiedEvent{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return NotifiedEvent{}, fmt.Errorf("parse amount: %w", err)
	}
	event.AmountEth = amount

	return event, nil
}
