package session

import (
	"strings"
)

// naturalCompare compares strings so that embedded numbers are compared by value: "frame2" < "frame10".
func naturalCompare(a, b string) int {
	chunksA := splitDigits(a)
	chunksB := splitDigits(b)
	for i := 0; i < len(chunksA) && i < len(chunksB); i++ {
		ca, cb := chunksA[i], chunksB[i]
		var cmp int
		if isDigit(ca[0]) && isDigit(cb[0]) {
			cmp = compareNumbers(ca, cb)
		} else {
			cmp = strings.Compare(ca, cb)
		}
		if cmp != 0 {
			return cmp
		}
	}
	switch {
	case len(chunksA) < len(chunksB):
		return -1
	case len(chunksA) > len(chunksB):
		return 1
	}
	// Equal by value, e.g. "frame01" and "frame1"
	return strings.Compare(a, b)
}

// splitDigits splits string into alternating runs of ASCII digits and everything else
func splitDigits(s string) []string {
	chunks := make([]string, 0, 4)
	start := 0
	for i := 1; i < len(s); i++ {
		if isDigit(s[i-1]) != isDigit(s[i]) {
			chunks = append(chunks, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		chunks = append(chunks, s[start:])
	}
	return chunks
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// compareNumbers compares decimal strings of arbitrary length by value
func compareNumbers(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
