package codec

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

func h256(b byte) string {
	return "0x" + strings.Repeat(string([]byte{hexDigit(b >> 4), hexDigit(b & 0xf)}), 32)
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + n - 10
}

func TestEncodeOrderPayloadLayout(t *testing.T) {
	p := OrderPayload{
		ClientOrderID:      h256(0x11),
		User:               h256(0x22),
		MainAccount:        h256(0x33),
		Pair:               "PDEX-USDT",
		Side:               domain.OrderSideBuy,
		Type:               domain.OrderTypeLimit,
		QuoteOrderQuantity: "0",
		Quantity:           "1.5",
		Price:              "2",
		Timestamp:          1,
	}

	b, err := EncodeOrderPayload(p)
	require.NoError(t, err)

	// 3 * H256 + (1+9) pair + side + type + (1+1) qoq + (1+3) qty + (1+1) price + 8 ts
	require.Len(t, b, 124)

	assert.Equal(t, bytes.Repeat([]byte{0x11}, 32), b[0:32])
	assert.Equal(t, bytes.Repeat([]byte{0x22}, 32), b[32:64])
	assert.Equal(t, bytes.Repeat([]byte{0x33}, 32), b[64:96])

	// Pair: compact length 9 (9<<2) then raw bytes.
	assert.Equal(t, byte(9<<2), b[96])
	assert.Equal(t, "PDEX-USDT", string(b[97:106]))

	// Bid = 1, LIMIT = 0.
	assert.Equal(t, byte(1), b[106])
	assert.Equal(t, byte(0), b[107])

	assert.Equal(t, byte(1<<2), b[108])
	assert.Equal(t, byte('0'), b[109])
	assert.Equal(t, byte(3<<2), b[110])
	assert.Equal(t, "1.5", string(b[111:114]))
	assert.Equal(t, byte(1<<2), b[114])
	assert.Equal(t, byte('2'), b[115])

	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(b[116:124]))
}

func TestEncodeOrderPayloadSideAndType(t *testing.T) {
	p := OrderPayload{
		ClientOrderID:      h256(0x01),
		User:               h256(0x02),
		MainAccount:        h256(0x03),
		Pair:               "A-B",
		Side:               domain.OrderSideSell,
		Type:               domain.OrderTypeMarket,
		QuoteOrderQuantity: "5",
		Quantity:           "0",
		Price:              "0",
	}

	b, err := EncodeOrderPayload(p)
	require.NoError(t, err)

	// Ask = 0, MARKET = 1, right after the pair string.
	assert.Equal(t, byte(0), b[96+1+3])
	assert.Equal(t, byte(1), b[96+1+3+1])
}

func TestEncodeOrderPayloadRejectsUnknownEnums(t *testing.T) {
	valid := OrderPayload{
		ClientOrderID: h256(0x01),
		User:          h256(0x02),
		MainAccount:   h256(0x03),
		Pair:          "A-B",
		Side:          domain.OrderSideBuy,
		Type:          domain.OrderTypeLimit,
	}

	bad := valid
	bad.Side = "short"
	_, err := EncodeOrderPayload(bad)
	require.Error(t, err)

	bad = valid
	bad.Type = "STOP"
	_, err = EncodeOrderPayload(bad)
	require.Error(t, err)
}

func TestEncodeOrderPayloadRejectsBadH256(t *testing.T) {
	p := OrderPayload{
		ClientOrderID: "0xdeadbeef", // 4 bytes, not 32
		User:          h256(0x02),
		MainAccount:   h256(0x03),
		Pair:          "A-B",
		Side:          domain.OrderSideBuy,
		Type:          domain.OrderTypeLimit,
	}
	_, err := EncodeOrderPayload(p)
	require.Error(t, err)

	p.ClientOrderID = "not hex"
	_, err = EncodeOrderPayload(p)
	require.Error(t, err)
}

func TestEncodeCancelPayload(t *testing.T) {
	b, err := EncodeCancelPayload(h256(0xab))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xab}, 32), b)

	// The 0x prefix is optional.
	b2, err := EncodeCancelPayload(strings.TrimPrefix(h256(0xab), "0x"))
	require.NoError(t, err)
	assert.Equal(t, b, b2)

	_, err = EncodeCancelPayload("0x1234")
	require.Error(t, err)
}

func TestAppendCompactUint(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x04}},
		{63, []byte{0xfc}},
		{64, []byte{0x01, 0x01}},
		{16383, []byte{0xfd, 0xff}},
		{16384, []byte{0x02, 0x00, 0x01, 0x00}},
		{1 << 29, []byte{0x02, 0x00, 0x00, 0x80}},
		{1 << 30, []byte{0x03, 0x00, 0x00, 0x00, 0x40}},
	}
	for _, tc := range cases {
		got := appendCompactUint(nil, tc.n)
		assert.Equal(t, tc.want, got, "n=%d", tc.n)
	}
}
