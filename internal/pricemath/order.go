package pricemath

import "strings"

// SortAddresses orders a token pair the way the factory does, by ascending
// lowercase hex address. swapped reports whether a and b traded places.
func SortAddresses(a, b string) (token0, token1 string, swapped bool) {
	if strings.ToLower(b) < strings.ToLower(a) {
		return b, a, true
	}
	return a, b, false
}
