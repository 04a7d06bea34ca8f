package similarity

import "github.com/pmezard/go-difflib/difflib"

// Ratio returns the matched-block similarity of a and b in [0, 1], computed
// over Unicode code points: 2*M/T where M is the total size of the matching
// blocks found by greedy longest-match decomposition and T is the combined
// length. Two empty strings score 1.0. The result does not depend on argument
// order.
func Ratio(a, b string, autoJunk bool) float64 {
	ra, rb := canonical([]rune(a), []rune(b))
	if len(ra)+len(rb) == 0 {
		return 1.0
	}
	return difflib.NewMatcherWithJunk(runeStrings(ra), runeStrings(rb), autoJunk, nil).Ratio()
}

// canonical orders the pair shorter first, then lexically, so the asymmetric
// decomposition sees the same inputs regardless of call order.
func canonical(a, b []rune) ([]rune, []rune) {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return a, b
		}
		return b, a
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return a, b
			}
			return b, a
		}
	}
	return a, b
}

// runeStrings splits rs into one element per code point.
func runeStrings(rs []rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
