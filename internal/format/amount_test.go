package format

import (
	"math/big"
	"testing"
)

func TestTokenAmount(t *testing.T) {
	cases := []struct {
		value    *big.Int
		decimals uint8
		want     string
	}{
		{nil, 18, "0"},
		{big.NewInt(0), 18, "0"},
		{big.NewInt(1234), 0, "1234"},
		{big.NewInt(1_500_000), 6, "1.5"},
		{big.NewInt(2_000_000), 6, "2"},
		{big.NewInt(1), 6, "0.000001"},
		{big.NewInt(-2_500_000), 6, "-2.5"},
		{new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil), 18, "100"},
	}
	for _, c := range cases {
		if got := TokenAmount(c.value, c.decimals); got != c.want {
			t.Fatalf("TokenAmount(%v, %d) = %s, want %s", c.value, c.decimals, got, c.want)
		}
	}
}

func TestParseTokenAmount(t *testing.T) {
	got, ok := ParseTokenAmount("1.5", 18)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if !ok || got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %v ok=%v", want, got, ok)
	}
	got, ok = ParseTokenAmount("100", 0)
	if !ok || got.Int64() != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	got, ok = ParseTokenAmount(".25", 2)
	if !ok || got.Int64() != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	for _, bad := range []string{"", "-1", "1.234", "abc", "1.x"} {
		if _, ok := ParseTokenAmount(bad, 2); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
