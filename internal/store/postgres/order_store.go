package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

// OrderStore implements domain.OrderJournal using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Insert appends one order lifecycle transition.
func (s *OrderStore) Insert(ctx context.Context, update domain.OrderUpdate) error {
	const query = `
		INSERT INTO order_updates (
			client_order_id, exchange_order_id, trading_pair,
			new_state, filled_amount, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		update.ClientOrderID, update.ExchangeOrderID, update.TradingPair,
		string(update.NewState), update.FilledAmount, update.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert order update %s: %w", update.ClientOrderID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OrderJournal = (*OrderStore)(nil)
