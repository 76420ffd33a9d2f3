package format

import (
	"math/big"
	"strings"
)

// TokenAmount renders a raw token amount in whole units, trimming trailing
// zeros of the fractional part.
func TokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimSuffix(text, ".")
	}
	if sign < 0 {
		return "-" + text
	}
	return text
}

// ParseTokenAmount converts a decimal string in whole units into a raw amount.
// More fractional digits than decimals is rejected.
func ParseTokenAmount(text string, decimals uint8) (*big.Int, bool) {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "-") {
		return nil, false
	}
	whole, frac, _ := strings.Cut(text, ".")
	if len(frac) > int(decimals) {
		return nil, false
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	out, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, false
	}
	return out, true
}
