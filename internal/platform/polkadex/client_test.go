package polkadex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

// noLimiter satisfies domain.RateLimiter without ever blocking.
type noLimiter struct{}

func (noLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) { return true, nil }
func (noLimiter) Wait(context.Context, string) error                              { return nil }

type capturedRequest struct {
	auth      string
	query     string
	variables map[string]any
}

// newTestClient serves canned GraphQL data and records what the client sent.
func newTestClient(t *testing.T, data string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		captured.query = req.Query
		captured.variables = req.Variables

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":` + data + `}`))
	}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, "0xproxy", noLimiter{}), captured
}

func TestAllAssets(t *testing.T) {
	c, captured := newTestClient(t, `{"getAllAssets":{"items":[{"asset_id":"123","name":"USDT"}]}}`)

	assets, err := c.AllAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "123", assets[0].AssetID)
	assert.Equal(t, "USDT", assets[0].Name)
	assert.Equal(t, "0xproxy", captured.auth)
}

func TestOrderbookParsesMixedStateIDs(t *testing.T) {
	c, _ := newTestClient(t, `{"getOrderbook":{"items":[
		{"p":"1.5","q":"10","s":"Bid","stid":7},
		{"p":"1.6","q":"4","s":"Ask","stid":"9"}
	]}}`)

	entries, err := c.Orderbook(context.Background(), "polkadex-123")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, FlexInt64(7), entries[0].StateID)
	assert.Equal(t, FlexInt64(9), entries[1].StateID)
}

func TestMainAccountFromProxy(t *testing.T) {
	c, captured := newTestClient(t, `{"findUserByProxyAccount":{"items":[{"hash_key":"proxy","range_key":"0xmain"}]}}`)

	main, err := c.MainAccountFromProxy(context.Background(), "0xproxy")
	require.NoError(t, err)
	assert.Equal(t, "0xmain", main)
	assert.Equal(t, "0xproxy", captured.variables["proxy_account"])
}

func TestMainAccountFromProxyUnregistered(t *testing.T) {
	c, _ := newTestClient(t, `{"findUserByProxyAccount":{"items":[]}}`)

	_, err := c.MainAccountFromProxy(context.Background(), "0xproxy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no main account")
}

func TestOrderFillsSendsAWSDateTimeWindow(t *testing.T) {
	c, captured := newTestClient(t, `{"listTradesByMainAccount":{"items":[]}}`)

	from := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	_, err := c.OrderFills(context.Background(), "0xmain", from, to)
	require.NoError(t, err)

	assert.Equal(t, "2023-05-01T12:00:00.000Z", captured.variables["from"])
	assert.Equal(t, "2023-05-01T13:00:00.000Z", captured.variables["to"])
}

func TestPlaceOrderDecodesNestedOutcome(t *testing.T) {
	// The mutation result is a JSON document inside a JSON string.
	outcome := `"{\"is_success\":true,\"body\":\"0xabc\"}"`
	c, captured := newTestClient(t, `{"place_order":`+outcome+`}`)

	id, err := c.PlaceOrder(context.Background(), OrderSubmission{ClientOrderID: "0x01"}, NewSignature("Ecdsa", "ff"))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", id)

	// The wire payload wraps order and signature in a PlaceOrder tuple.
	payload, ok := captured.variables["payload"].(string)
	require.True(t, ok)
	var decoded struct {
		PlaceOrder []json.RawMessage `json:"PlaceOrder"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	require.Len(t, decoded.PlaceOrder, 2)
	assert.Contains(t, string(decoded.PlaceOrder[0]), `"client_order_id":"0x01"`)
	assert.JSONEq(t, `{"Ecdsa":"ff"}`, string(decoded.PlaceOrder[1]))
}

func TestPlaceOrderRejection(t *testing.T) {
	outcome := `"{\"is_success\":false,\"body\":\"insufficient balance\"}"`
	c, _ := newTestClient(t, `{"place_order":`+outcome+`}`)

	_, err := c.PlaceOrder(context.Background(), OrderSubmission{ClientOrderID: "0x01"}, NewSignature("Ecdsa", "ff"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPlacementFailed))
}

func TestCancelOrderTupleLayout(t *testing.T) {
	c, captured := newTestClient(t, `{"cancel_order":true}`)

	accepted, err := c.CancelOrder(context.Background(), "0xoid", "pdex-usdt", "0xmain", "0xproxy", NewSignature("Ecdsa", "ff"))
	require.NoError(t, err)
	assert.True(t, accepted)

	payload, ok := captured.variables["payload"].(string)
	require.True(t, ok)
	var decoded struct {
		CancelOrder []json.RawMessage `json:"CancelOrder"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	require.Len(t, decoded.CancelOrder, 5)
	assert.Equal(t, `"0xoid"`, string(decoded.CancelOrder[0]))
	assert.Equal(t, `"0xmain"`, string(decoded.CancelOrder[1]))
	assert.Equal(t, `"0xproxy"`, string(decoded.CancelOrder[2]))
	assert.Equal(t, `"pdex-usdt"`, string(decoded.CancelOrder[3]))
}

func TestFindOrderAbsent(t *testing.T) {
	c, _ := newTestClient(t, `{"findOrderByMainAccount":null}`)

	entry, err := c.FindOrder(context.Background(), "0xmain", "pdex-usdt", "0xoid")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestGraphQLErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Order is not active"}]}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "token", noLimiter{})

	_, err := c.CancelOrder(context.Background(), "0xoid", "m", "a", "b", NewSignature("Ecdsa", "ff"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), OrderNotActiveMessage)
}

func TestHTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "token", noLimiter{})

	_, err := c.AllAssets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}
