package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

// FillStore implements domain.FillJournal using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a new FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// InsertBatch appends multiple fills using pgx Batch. Duplicate fills (same
// trade_id and exchange_order_id) are silently skipped via ON CONFLICT DO
// NOTHING, so replayed stream events and overlapping poll windows are safe.
func (s *FillStore) InsertBatch(ctx context.Context, fills []domain.TradeFill) error {
	if len(fills) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO fills (
			trade_id, client_order_id, exchange_order_id, trading_pair,
			price, base_amount, quote_amount,
			fee_asset, fee_amount, timestamp
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10
		) ON CONFLICT (trade_id, exchange_order_id) DO NOTHING`

	for _, f := range fills {
		batch.Queue(query,
			f.TradeID, f.ClientOrderID, f.ExchangeOrderID, f.TradingPair,
			f.Price, f.BaseAmount, f.QuoteAmount,
			f.Fee.Asset, f.Fee.Amount, f.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range fills {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert fill batch item %d: %w", i, err)
		}
	}
	return nil
}

// GetLastTimestamp returns the most recent fill timestamp, or the zero time
// if no fills exist.
func (s *FillStore) GetLastTimestamp(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT MAX(timestamp) FROM fills").Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("postgres: get last fill timestamp: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}

// Compile-time interface check.
var _ domain.FillJournal = (*FillStore)(nil)
