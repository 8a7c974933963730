package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// USDCDecimals is the precision of the USDC token used for entry fees and prizes.
const USDCDecimals uint8 = 6

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrTooManyDecimal = errors.New("too many decimal places")
)

// ParseUnits converts a decimal string such as "5.25" into base units.
// It is exact: no float rounding is involved.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, value)
	}
	value = strings.TrimPrefix(value, "+")

	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %s has more than %d", ErrTooManyDecimal, value, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	out, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, value)
	}
	return out, nil
}

// ParseAmount accepts either raw base units ("5000000") or a decimal
// amount ("5.0"). Only values containing a dot are scaled by decimals.
func ParseAmount(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ".") {
		return ParseUnits(value, decimals)
	}
	out, ok := new(big.Int).SetString(value, 10)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return out, nil
}

// displayDecimals caps the fractional digits shown for 18-decimal ETH.
const displayDecimals = 6

// FormatBalance renders base units with min(decimals, 6) fractional digits.
// Extra precision is truncated, never rounded up.
func FormatBalance(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	shown := int(decimals)
	if shown > displayDecimals {
		shown = displayDecimals
	}

	v := new(big.Int).Abs(amount)
	v.Quo(v, pow10(int(decimals)-shown))
	whole, frac := new(big.Int).QuoRem(v, pow10(shown), new(big.Int))

	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
	}
	if shown == 0 {
		return sign + whole.String()
	}
	fs := frac.String()
	return sign + whole.String() + "." + strings.Repeat("0", shown-len(fs)) + fs
}

// FormatUSDC renders a USDC base-unit amount.
func FormatUSDC(amount *big.Int) string {
	return FormatBalance(amount, USDCDecimals)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
