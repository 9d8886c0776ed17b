package codec

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.2300", "1.23"},
		{"5.000", "5"},
		{"0.00000001", "0.00000001"},
		{"0.123456789", "0.12345679"}, // rounded to 8 fractional digits
		{"0.100000004", "0.1"},
		{"100", "100"},
		{"-2.500", "-2.5"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, Normalize(d, 8).String(), "in=%s", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"1.23000", "0.999999995", "42", "0.00000001"} {
		d, err := decimal.NewFromString(s)
		require.NoError(t, err)
		once := Normalize(d, 8)
		twice := Normalize(once, 8)
		assert.True(t, once.Equal(twice), "in=%s once=%s twice=%s", s, once, twice)
		assert.Equal(t, once.String(), twice.String())
	}
}
