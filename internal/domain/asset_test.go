package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineAndSplitTradingPair(t *testing.T) {
	pair := CombineTradingPair("PDEX", "USDT")
	assert.Equal(t, "PDEX-USDT", pair)

	base, quote, ok := SplitTradingPair(pair)
	assert.True(t, ok)
	assert.Equal(t, "PDEX", base)
	assert.Equal(t, "USDT", quote)

	for _, bad := range []string{"", "PDEX", "-USDT", "PDEX-"} {
		_, _, ok := SplitTradingPair(bad)
		assert.False(t, ok, "pair=%q", bad)
	}
}

func TestSplitMarketSymbol(t *testing.T) {
	base, quote, ok := SplitMarketSymbol("polkadex-3496813586714279056140")
	assert.True(t, ok)
	assert.Equal(t, "polkadex", base)
	assert.Equal(t, "3496813586714279056140", quote)

	// Asset ids never contain dashes, so the first dash always separates.
	base, quote, ok = SplitMarketSymbol("1-2-3")
	assert.True(t, ok)
	assert.Equal(t, "1", base)
	assert.Equal(t, "2-3", quote)

	for _, bad := range []string{"", "nodash", "-x", "x-"} {
		_, _, ok := SplitMarketSymbol(bad)
		assert.False(t, ok, "symbol=%q", bad)
	}
}
