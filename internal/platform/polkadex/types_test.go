package polkadex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

func TestFlexInt64Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`-1`, -1},
		{`"-1"`, -1},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tc := range cases {
		var f FlexInt64
		require.NoError(t, json.Unmarshal([]byte(tc.in), &f), "in=%s", tc.in)
		assert.Equal(t, tc.want, int64(f), "in=%s", tc.in)
	}

	var f FlexInt64
	assert.Error(t, json.Unmarshal([]byte(`"4.2"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}

func TestFlexInt64InStructs(t *testing.T) {
	// The venue switches between number and string encodings for the same
	// field across queries.
	var a, b OrderbookEntry
	require.NoError(t, json.Unmarshal([]byte(`{"p":"1","q":"2","s":"Bid","stid":77}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"p":"1","q":"2","s":"Bid","stid":"77"}`), &b))
	assert.Equal(t, a.StateID, b.StateID)
}

func TestOrderStateFromStatus(t *testing.T) {
	state, ok := OrderStateFromStatus("OPEN")
	assert.True(t, ok)
	assert.Equal(t, domain.OrderStateOpen, state)

	state, ok = OrderStateFromStatus("CANCELLED")
	assert.True(t, ok)
	assert.Equal(t, domain.OrderStateCanceled, state)

	state, ok = OrderStateFromStatus("CLOSED")
	assert.True(t, ok)
	assert.Equal(t, domain.OrderStateFilled, state)

	_, ok = OrderStateFromStatus("EXPIRED")
	assert.False(t, ok)
}

func TestSideConversions(t *testing.T) {
	side, ok := SideFromVenue("Bid")
	assert.True(t, ok)
	assert.Equal(t, domain.OrderSideBuy, side)

	side, ok = SideFromVenue("Ask")
	assert.True(t, ok)
	assert.Equal(t, domain.OrderSideSell, side)

	_, ok = SideFromVenue("bid")
	assert.False(t, ok)

	assert.Equal(t, "Bid", SideToVenue(domain.OrderSideBuy))
	assert.Equal(t, "Ask", SideToVenue(domain.OrderSideSell))
}

func TestTypeConversions(t *testing.T) {
	typ, ok := TypeFromVenue("LIMIT")
	assert.True(t, ok)
	assert.Equal(t, domain.OrderTypeLimit, typ)

	typ, ok = TypeFromVenue("MARKET")
	assert.True(t, ok)
	assert.Equal(t, domain.OrderTypeMarket, typ)

	_, ok = TypeFromVenue("limit")
	assert.False(t, ok)

	assert.Equal(t, "LIMIT", TypeToVenue(domain.OrderTypeLimit))
	assert.Equal(t, "MARKET", TypeToVenue(domain.OrderTypeMarket))
}

func TestSignatureEncoding(t *testing.T) {
	sig := NewSignature("Ecdsa", "deadbeef")
	out, err := json.Marshal(sig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ecdsa":"deadbeef"}`, string(out))
}
