package form

import (
	"strconv"
	"strings"
)

// ParseDecimals coerces raw decimals input the way a numeric form field
// does: the leading integer digits count, and anything else yields 0.
// Values beyond int32 saturate so they still fail range validation.
func ParseDecimals(raw string) int {
	s := strings.TrimLeft(raw, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil {
		if s[0] == '-' {
			return -1 << 31
		}
		return 1<<31 - 1
	}
	return int(n)
}

// NormalizeSymbol upper-cases symbol input as it is typed.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(raw)
}
