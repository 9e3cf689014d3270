package pipeline

import (
	"testing"
)

func TestParseAmountRange(t *testing.T) {
	i64 := func(v int64) *int64 { return &v }

	tests := []struct {
		name  string
		input string
		min   *int64
		max   *int64
	}{
		{"standard bracket", "$1,001 - $15,000", i64(1001), i64(15000)},
		{"mid bracket", "$15,001 - $50,000", i64(15001), i64(50000)},
		{"large bracket", "$1,000,001 - $5,000,000", i64(1000001), i64(5000000)},
		{"open plus", "$50,000,001 +", i64(50000001), nil},
		{"open plus no space", "$50,000,001+", i64(50000001), nil},
		{"over wording", "Over $50,000,000", i64(50000001), nil},
		{"over lowercase", "over $1,000,000", i64(1000001), nil},
		{"single value", "$15,000", i64(15000), i64(15000)},
		{"single value no dollar", "15,000", i64(15000), i64(15000)},
		{"unparseable", "an undisclosed amount", nil, nil},
		{"empty", "", nil, nil},
		{"inverted range", "$50,000 - $1,001", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := ParseAmountRange(tt.input)
			if !int64PtrEqual(min, tt.min) {
				t.Errorf("min = %s, want %s", int64PtrString(min), int64PtrString(tt.min))
			}
			if !int64PtrEqual(max, tt.max) {
				t.Errorf("max = %s, want %s", int64PtrString(max), int64PtrString(tt.max))
			}
		})
	}
}
