package polkadex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

// FlexInt64 decodes integer fields that the venue serializes inconsistently,
// sometimes as JSON numbers and sometimes as decimal strings.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse int field %q: %w", s, err)
	}
	*f = FlexInt64(v)
	return nil
}

// AssetInfo is one entry of the venue's asset registry.
type AssetInfo struct {
	AssetID string `json:"asset_id"`
	Name    string `json:"name"`
}

// MarketInfo is one entry of the venue's market registry. Numeric bounds
// arrive as decimal strings.
type MarketInfo struct {
	Market        string `json:"market"`
	MaxOrderPrice string `json:"max_order_price"`
	MinOrderPrice string `json:"min_order_price"`
	MinOrderQty   string `json:"min_order_qty"`
	MaxOrderQty   string `json:"max_order_qty"`
	PriceTickSize string `json:"price_tick_size"`
	QtyStepSize   string `json:"qty_step_size"`
}

// OrderbookEntry is one aggregated price level from the orderbook query.
type OrderbookEntry struct {
	Price    string    `json:"p"`
	Quantity string    `json:"q"`
	Side     string    `json:"s"`
	StateID  FlexInt64 `json:"stid"`
}

// RecentTrade is one public trade from the recent trades query.
type RecentTrade struct {
	IsReverted bool      `json:"isReverted"`
	Market     string    `json:"m"`
	Price      string    `json:"p"`
	Quantity   string    `json:"q"`
	Timestamp  FlexInt64 `json:"t"`
}

// BalanceEntry is one asset balance from the balances query.
type BalanceEntry struct {
	Asset    string `json:"a"`
	Free     string `json:"f"`
	Reserved string `json:"r"`
}

// FillEntry is one account trade from the fills query. MakerID and TakerID
// are the exchange order ids of the two sides.
type FillEntry struct {
	IsReverted bool      `json:"isReverted"`
	Market     string    `json:"m"`
	MakerID    string    `json:"m_id"`
	TakerID    string    `json:"t_id"`
	Price      string    `json:"p"`
	Quantity   string    `json:"q"`
	StateID    FlexInt64 `json:"stid"`
	Timestamp  FlexInt64 `json:"t"`
	TradeID    string    `json:"trade_id"`
}

// OrderEntry is one order from the find/list order queries.
type OrderEntry struct {
	User           string    `json:"u"`
	ClientOrderID  string    `json:"cid"`
	ID             string    `json:"id"`
	Timestamp      FlexInt64 `json:"t"`
	Market         string    `json:"m"`
	Side           string    `json:"s"`
	OrderType      string    `json:"ot"`
	Status         string    `json:"st"`
	Price          string    `json:"p"`
	Quantity       string    `json:"q"`
	AvgFilledPrice string    `json:"afp"`
	FilledQuantity string    `json:"fq"`
	Fee            string    `json:"fee"`
	StateID        FlexInt64 `json:"stid"`
	IsReverted     bool      `json:"isReverted"`
}

// OrderSubmission is the JSON body of a place_order mutation. Its field
// values must match the SCALE payload that was signed.
type OrderSubmission struct {
	User          string `json:"user"`
	MainAccount   string `json:"main_account"`
	Pair          string `json:"pair"`
	Qty           string `json:"qty"`
	Price         string `json:"price"`
	QuoteOrderQty string `json:"quote_order_quantity"`
	Timestamp     int64  `json:"timestamp"`
	ClientOrderID string `json:"client_order_id"`
	OrderType     string `json:"order_type"`
	Side          string `json:"side"`
}

// Signature is the venue's MultiSignature representation: a single-entry
// object keyed by the scheme name ("Ecdsa", "Sr25519", "Ed25519") with the
// hex-encoded signature bytes as value.
type Signature map[string]string

// NewSignature builds a Signature for the given scheme and hex payload.
func NewSignature(scheme, sigHex string) Signature {
	return Signature{scheme: sigHex}
}

// --------------------------------------------------------------------------
// Subscription stream payloads
// --------------------------------------------------------------------------

// BookDiffEvent is an incremental orderbook update from an "ob-inc" stream.
// Bids and Asks map price to the new aggregate amount at that level; an
// amount of "0" removes the level.
type BookDiffEvent struct {
	UpdateID FlexInt64         `json:"i"`
	Bids     map[string]string `json:"b"`
	Asks     map[string]string `json:"a"`
}

// PublicTradeEvent is one trade from a "recent-trades" stream.
type PublicTradeEvent struct {
	Market    string    `json:"m"`
	Price     string    `json:"p"`
	Quantity  string    `json:"q"`
	MakerSide string    `json:"m_side"`
	TradeID   string    `json:"trade_id"`
	Timestamp FlexInt64 `json:"t"`
}

// PrivateEnvelope carries the discriminant of a private stream event.
type PrivateEnvelope struct {
	Type string `json:"type"`
}

// BalanceEvent is a "SetBalance" private event.
type BalanceEvent struct {
	Asset struct {
		Asset string `json:"asset"`
	} `json:"asset"`
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
}

// OrderUpdateEvent is an "Order" private event.
type OrderUpdateEvent struct {
	ID   string `json:"id"`
	Pair struct {
		Base struct {
			Asset string `json:"asset"`
		} `json:"base"`
		Quote struct {
			Asset string `json:"asset"`
		} `json:"quote"`
	} `json:"pair"`
	FilledQuantity string    `json:"filled_quantity"`
	Status         string    `json:"status"`
	ClientOrderID  string    `json:"client_order_id"`
	StateID        FlexInt64 `json:"stid"`
}

// TradeEvent is a "TradeFormat" private event: a fill on one of the
// account's own orders.
type TradeEvent struct {
	Market        string `json:"m"`
	Price         string `json:"p"`
	Quantity      string `json:"q"`
	Side          string `json:"s"`
	TradeID       string `json:"trade_id"`
	ClientOrderID string `json:"cid"`
	OrderID       string `json:"order_id"`
}

// --------------------------------------------------------------------------
// Domain conversions
// --------------------------------------------------------------------------

// OrderStateFromStatus maps a venue order status to the domain state.
// The returned bool is false for unknown statuses.
func OrderStateFromStatus(status string) (domain.OrderState, bool) {
	switch status {
	case statusOpen:
		return domain.OrderStateOpen, true
	case statusCancelled:
		return domain.OrderStateCanceled, true
	case statusClosed:
		return domain.OrderStateFilled, true
	default:
		return "", false
	}
}

// SideFromVenue maps a venue side name to the domain order side.
func SideFromVenue(side string) (domain.OrderSide, bool) {
	switch side {
	case sideBid:
		return domain.OrderSideBuy, true
	case sideAsk:
		return domain.OrderSideSell, true
	default:
		return "", false
	}
}

// SideToVenue maps a domain order side to the venue side name.
func SideToVenue(side domain.OrderSide) string {
	if side == domain.OrderSideSell {
		return sideAsk
	}
	return sideBid
}

// TypeFromVenue maps a venue order type name to the domain order type.
func TypeFromVenue(orderType string) (domain.OrderType, bool) {
	switch orderType {
	case typeLimit:
		return domain.OrderTypeLimit, true
	case typeMarket:
		return domain.OrderTypeMarket, true
	default:
		return "", false
	}
}

// TypeToVenue maps a domain order type to the venue order type name.
func TypeToVenue(orderType domain.OrderType) string {
	if orderType == domain.OrderTypeMarket {
		return typeMarket
	}
	return typeLimit
}
