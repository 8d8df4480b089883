package catalog

import (
	"cmp"
	"strconv"
	"strings"
)

// ParseVersionNumber splits a dotted version into four components. A missing
// fourth component is zero.
func ParseVersionNumber(s string) ([4]int, bool) {
	var out [4]int
	if !IsVersionNumber(s) {
		return out, false
	}
	for i, part := range strings.Split(s, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// CompareVersions orders two names numerically when both are version numbers
// and lexically otherwise. Numeric names sort before non-numeric ones.
func CompareVersions(a, b string) int {
	va, okA := ParseVersionNumber(a)
	vb, okB := ParseVersionNumber(b)
	switch {
	case okA && okB:
		for i := range va {
			if c := cmp.Compare(va[i], vb[i]); c != 0 {
				return c
			}
		}
		return 0
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
