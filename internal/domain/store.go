package domain

import (
	"context"
	"time"
)

// FillJournal is an append-only record of fills for audit and reporting.
// The engine writes to it and never reads it back; ErrNotFound-style
// semantics therefore do not apply.
type FillJournal interface {
	InsertBatch(ctx context.Context, fills []TradeFill) error
	GetLastTimestamp(ctx context.Context) (time.Time, error)
}

// OrderJournal records order lifecycle transitions for audit.
type OrderJournal interface {
	Insert(ctx context.Context, update OrderUpdate) error
}
