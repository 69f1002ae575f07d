package form

import "testing"

func TestParseDecimals(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"7", 7},
		{"  18", 18},
		{"7abc", 7},
		{"-3", -3},
		{"+4", 4},
		{"7.9", 7},
		{"abc", 0},
		{"", 0},
		{"-", 0},
		{"99999999999", 1<<31 - 1},
		{"-99999999999", -1 << 31},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDecimals(tt.in); got != tt.want {
				t.Errorf("ParseDecimals(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("abc1"); got != "ABC1" {
		t.Errorf("got %q", got)
	}
}
