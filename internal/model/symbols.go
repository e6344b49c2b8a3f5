package model

import "strings"

const perpSuffix = "-PERP"

// AllowedPairs lists the supported trading pairs by base symbol.
// Direction matters: a LONG on SOL/BTC is not a LONG on BTC/SOL,
// so both orders are listed separately.
var AllowedPairs = [][2]string{
	{"SOL", "BTC"},
	{"BTC", "SOL"},
	{"ETH", "BTC"},
	{"BTC", "ETH"},
	{"SOL", "ETH"},
	{"ETH", "SOL"},
}

// NormalizeSymbol uppercases a symbol and ensures the -PERP suffix.
func NormalizeSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(upper, perpSuffix) {
		return upper
	}
	return upper + perpSuffix
}

// BaseSymbol strips the -PERP suffix from an uppercased symbol.
func BaseSymbol(symbol string) string {
	return strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(symbol)), perpSuffix)
}

// PairAllowed reports whether the ordered pair (symbolA, symbolB) is supported.
func PairAllowed(symbolA, symbolB string) bool {
	a, b := BaseSymbol(symbolA), BaseSymbol(symbolB)
	for _, p := range AllowedPairs {
		if p[0] == a && p[1] == b {
			return true
		}
	}
	return false
}

// AllowedPairStrings returns the supported pairs as "A/B" strings for error messages.
func AllowedPairStrings() []string {
	out := make([]string, len(AllowedPairs))
	for i, p := range AllowedPairs {
		out[i] = p[0] + "/" + p[1]
	}
	return out
}
