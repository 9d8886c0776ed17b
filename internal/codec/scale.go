// Package codec encodes order and cancel payloads into the venue's SCALE
// binary schema and normalizes decimal quantities to the venue's precision
// convention. Payloads are encoded here, then signed, then submitted as
// plaintext with the detached signature.
package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

// SCALE enum indexes, in the order the venue's type registry declares the
// variants.
const (
	sideAsk = 0
	sideBid = 1

	orderTypeLimit  = 0
	orderTypeMarket = 1
)

// OrderPayload is the structured order-placement record prior to encoding.
// ClientOrderID, User, and MainAccount are 0x-prefixed 32-byte hex values;
// the quantity fields are decimal strings already normalized by Normalize.
type OrderPayload struct {
	ClientOrderID      string
	User               string
	MainAccount        string
	Pair               domain.MarketSymbol
	Side               domain.OrderSide
	Type               domain.OrderType
	QuoteOrderQuantity string
	Quantity           string
	Price              string
	Timestamp          int64 // unix milliseconds
}

// EncodeOrderPayload encodes an order placement into the venue's OrderPayload
// SCALE struct. Field order matches the venue's type registry and must not
// be rearranged.
func EncodeOrderPayload(p OrderPayload) ([]byte, error) {
	buf := make([]byte, 0, 160)

	b, err := appendH256(buf, p.ClientOrderID)
	if err != nil {
		return nil, fmt.Errorf("codec: client order id: %w", err)
	}
	if b, err = appendH256(b, p.User); err != nil {
		return nil, fmt.Errorf("codec: user account: %w", err)
	}
	if b, err = appendH256(b, p.MainAccount); err != nil {
		return nil, fmt.Errorf("codec: main account: %w", err)
	}
	b = appendString(b, p.Pair)

	switch p.Side {
	case domain.OrderSideSell:
		b = append(b, sideAsk)
	case domain.OrderSideBuy:
		b = append(b, sideBid)
	default:
		return nil, fmt.Errorf("codec: unknown order side %q", p.Side)
	}

	switch p.Type {
	case domain.OrderTypeLimit:
		b = append(b, orderTypeLimit)
	case domain.OrderTypeMarket:
		b = append(b, orderTypeMarket)
	default:
		return nil, fmt.Errorf("codec: unknown order type %q", p.Type)
	}

	b = appendString(b, p.QuoteOrderQuantity)
	b = appendString(b, p.Quantity)
	b = appendString(b, p.Price)
	b = binary.LittleEndian.AppendUint64(b, uint64(p.Timestamp))

	return b, nil
}

// EncodeCancelPayload encodes an order cancellation: the exchange order id
// as a raw H256.
func EncodeCancelPayload(exchangeOrderID string) ([]byte, error) {
	b, err := appendH256(nil, exchangeOrderID)
	if err != nil {
		return nil, fmt.Errorf("codec: exchange order id: %w", err)
	}
	return b, nil
}

// appendH256 appends a 32-byte value given as 0x-prefixed (or bare) hex.
// H256 is a fixed-length type in SCALE, so no length prefix is written.
func appendH256(buf []byte, hexValue string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexValue, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", hexValue, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	return append(buf, raw...), nil
}

// appendString appends a SCALE string: compact-encoded byte length followed
// by the raw bytes.
func appendString(buf []byte, s string) []byte {
	buf = appendCompactUint(buf, uint64(len(s)))
	return append(buf, s...)
}

// appendCompactUint appends a SCALE compact-encoded unsigned integer. The
// two low bits of the first byte select the encoding width.
func appendCompactUint(buf []byte, n uint64) []byte {
	switch {
	case n < 1<<6:
		return append(buf, byte(n)<<2)
	case n < 1<<14:
		v := uint16(n)<<2 | 0b01
		return binary.LittleEndian.AppendUint16(buf, v)
	case n < 1<<30:
		v := uint32(n)<<2 | 0b10
		return binary.LittleEndian.AppendUint32(buf, v)
	default:
		// Big-integer mode: prefix byte carries the byte count, then the
		// value little-endian with trailing zeros trimmed.
		var scratch [8]byte
		binary.LittleEndian.PutUint64(scratch[:], n)
		byteLen := 8
		for byteLen > 4 && scratch[byteLen-1] == 0 {
			byteLen--
		}
		buf = append(buf, byte(byteLen-4)<<2|0b11)
		return append(buf, scratch[:byteLen]...)
	}
}
