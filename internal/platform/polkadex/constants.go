// Package polkadex talks to the Polkadex orderbook service over its
// authenticated GraphQL API: HTTP for queries and mutations, WebSocket for
// subscription streams.
package polkadex

// Default endpoints for the public deployment.
const (
	DefaultGraphQLURL = "https://yx375ldozvcvthjk2nczch3fhq.appsync-api.eu-central-1.amazonaws.com/graphql"
	DefaultWSURL      = "wss://yx375ldozvcvthjk2nczch3fhq.appsync-realtime-api.eu-central-1.amazonaws.com/graphql"
)

// Stream name suffixes. Public streams are named "<market>-<suffix>";
// private streams are named after the subscriber's account address.
const (
	OrderbookStreamSuffix    = "ob-inc"
	RecentTradesStreamSuffix = "recent-trades"
)

// Rate limit ids, one per API operation.
const (
	LimitAllAssets      = "AllAssets"
	LimitAllMarkets     = "AllMarkets"
	LimitOrderbook      = "Orderbook"
	LimitFindUser       = "FindUser"
	LimitRecentTrades   = "RecentTrades"
	LimitAllBalances    = "AllBalances"
	LimitAllFills       = "AllFills"
	LimitPlaceOrder     = "PlaceOrder"
	LimitCancelOrder    = "CancelOrder"
	LimitOrderUpdate    = "OrderUpdate"
	LimitListOpenOrders = "ListOpenOrders"
)

// The venue reports balances for the native token under a lowercase name
// that never appears in the asset registry, so it is mapped by hand.
const (
	NativeAssetID     = "polkadex"
	NativeAssetSymbol = "PDEX"
)

// MaxFractionScale is the largest number of fractional digits the venue
// accepts in order prices and quantities.
const MaxFractionScale = 8

// OrderNotActiveMessage is the error text the venue returns when cancelling
// an order that already reached a terminal state.
const OrderNotActiveMessage = "Order is not active"

// Venue order state names.
const (
	statusOpen      = "OPEN"
	statusCancelled = "CANCELLED"
	statusClosed    = "CLOSED"
)

// Venue order side names.
const (
	sideBid = "Bid"
	sideAsk = "Ask"
)

// Venue order type names.
const (
	typeLimit  = "LIMIT"
	typeMarket = "MARKET"
)

// Private event discriminants.
const (
	EventTypeBalance = "SetBalance"
	EventTypeOrder   = "Order"
	EventTypeTrade   = "TradeFormat"
)
