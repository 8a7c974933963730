package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	t.Run("whole amount", func(t *testing.T) {
		v, err := ParseUnits("5", 6)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(5_000_000), v)
	})

	t.Run("fractional amount", func(t *testing.T) {
		v, err := ParseUnits("5.25", 6)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(5_250_000), v)
	})

	t.Run("leading dot", func(t *testing.T) {
		v, err := ParseUnits(".5", 6)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(500_000), v)
	})

	t.Run("full precision", func(t *testing.T) {
		v, err := ParseUnits("0.000001", 6)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1), v)
	})

	t.Run("rejects excess precision", func(t *testing.T) {
		_, err := ParseUnits("0.0000001", 6)
		assert.ErrorIs(t, err, ErrTooManyDecimal)
	})

	t.Run("rejects negative", func(t *testing.T) {
		_, err := ParseUnits("-1", 6)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseUnits("five", 6)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseUnits("  ", 6)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("18 decimals", func(t *testing.T) {
		v, err := ParseUnits("1.5", 18)
		require.NoError(t, err)
		want, _ := new(big.Int).SetString("1500000000000000000", 10)
		assert.Equal(t, want, v)
	})
}

func TestParseAmount(t *testing.T) {
	t.Run("raw base units", func(t *testing.T) {
		v, err := ParseAmount("5000000", USDCDecimals)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(5_000_000), v)
	})

	t.Run("decimal form is scaled", func(t *testing.T) {
		v, err := ParseAmount("5.0", USDCDecimals)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(5_000_000), v)
	})

	t.Run("rejects negative raw", func(t *testing.T) {
		_, err := ParseAmount("-5", USDCDecimals)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		_, err := ParseAmount("abc", USDCDecimals)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestFormatUSDC(t *testing.T) {
	assert.Equal(t, "49.500000", FormatUSDC(big.NewInt(49_500_000)))
	assert.Equal(t, "0.000001", FormatUSDC(big.NewInt(1)))
	assert.Equal(t, "0", FormatUSDC(nil))
}

func TestFormatBalance(t *testing.T) {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)

	tests := []struct {
		name     string
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{"zero eth", big.NewInt(0), 18, "0.000000"},
		{"one eth", oneEth, 18, "1.000000"},
		{"gas dust truncated", big.NewInt(999_999_999_999), 18, "0.000000"},
		{"one and a half micro eth", big.NewInt(1_500_000_000_000), 18, "0.000001"},
		{"thousand eth", new(big.Int).Mul(oneEth, big.NewInt(1000)), 18, "1000.000000"},
		{"two decimals", big.NewInt(10_050), 2, "100.50"},
		{"no decimals", big.NewInt(12345), 0, "12345"},
		{"negative", big.NewInt(-2_500_000), 6, "-2.500000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBalance(tt.amount, tt.decimals))
		})
	}
}
