package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

// bookTTL bounds how long a mirrored book survives without updates, so a
// stopped engine does not leave stale books behind for readers.
const bookTTL = 5 * time.Minute

// OrderbookCache implements domain.OrderbookCache by mirroring each trading
// pair's book as a JSON document.
//
// Key schema:
//
//	book:{pair} - JSON snapshot (bids, asks, update id, timestamp)
type OrderbookCache struct {
	rdb *redis.Client
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
func NewOrderbookCache(c *Client) *OrderbookCache {
	return &OrderbookCache{rdb: c.rdb}
}

func bookKey(pair domain.TradingPair) string {
	return "book:" + pair
}

// cachedLevel and cachedBook are the wire form of a mirrored snapshot.
// Prices and amounts are decimal strings.
type cachedLevel struct {
	Price  string `json:"p"`
	Amount string `json:"a"`
}

type cachedBook struct {
	TradingPair string        `json:"trading_pair"`
	UpdateID    int64         `json:"update_id"`
	Bids        []cachedLevel `json:"bids"`
	Asks        []cachedLevel `json:"asks"`
	Timestamp   int64         `json:"ts"`
}

// SetSnapshot replaces the mirrored book for a trading pair.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, pair domain.TradingPair, snap domain.OrderBookSnapshot) error {
	doc := cachedBook{
		TradingPair: snap.TradingPair,
		UpdateID:    snap.UpdateID,
		Bids:        toCachedLevels(snap.Bids),
		Asks:        toCachedLevels(snap.Asks),
		Timestamp:   snap.Timestamp.UnixMilli(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", pair, err)
	}

	if err := oc.rdb.Set(ctx, bookKey(pair), data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", pair, err)
	}
	return nil
}

// GetSnapshot reads the mirrored book for a trading pair.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, pair domain.TradingPair) (domain.OrderBookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(pair)).Bytes()
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: get book %s: %w", pair, err)
	}

	var doc cachedBook
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: unmarshal book %s: %w", pair, err)
	}

	bids, err := fromCachedLevels(doc.Bids)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: book %s bids: %w", pair, err)
	}
	asks, err := fromCachedLevels(doc.Asks)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: book %s asks: %w", pair, err)
	}

	return domain.OrderBookSnapshot{
		TradingPair: doc.TradingPair,
		UpdateID:    doc.UpdateID,
		Bids:        bids,
		Asks:        asks,
		Timestamp:   time.UnixMilli(doc.Timestamp),
	}, nil
}

func toCachedLevels(levels []domain.PriceLevel) []cachedLevel {
	out := make([]cachedLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, cachedLevel{Price: lvl.Price.String(), Amount: lvl.Amount.String()})
	}
	return out
}

func fromCachedLevels(levels []cachedLevel) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", lvl.Price, err)
		}
		amount, err := decimal.NewFromString(lvl.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", lvl.Amount, err)
		}
		out = append(out, domain.PriceLevel{Price: price, Amount: amount})
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.OrderbookCache = (*OrderbookCache)(nil)
