package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	amountRangeRe  = regexp.MustCompile(`\$?([\d,]+)\s*-\s*\$?([\d,]+)`)
	amountOpenRe   = regexp.MustCompile(`\$?([\d,]+)\s*\+`)
	amountOverRe   = regexp.MustCompile(`(?i)over\s+\$?([\d,]+)`)
	amountSingleRe = regexp.MustCompile(`\$?([\d,]+)`)
)

// ParseAmountRange converts the disclosure amount vocabulary into a numeric
// range. Open-ended brackets ("$50,000,001 +", "Over $50,000,000") yield the
// exclusive lower bound plus one where the wording implies it and a nil upper
// bound. Unparseable input yields (nil, nil); it is recorded as a warning by
// the caller, never an error.
func ParseAmountRange(raw string) (*int64, *int64) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	if m := amountRangeRe.FindStringSubmatch(s); m != nil {
		min, okMin := parseAmountNumber(m[1])
		max, okMax := parseAmountNumber(m[2])
		if okMin && okMax && min <= max {
			return &min, &max
		}
		return nil, nil
	}

	if m := amountOverRe.FindStringSubmatch(s); m != nil {
		if v, ok := parseAmountNumber(m[1]); ok {
			min := v + 1
			return &min, nil
		}
		return nil, nil
	}

	if m := amountOpenRe.FindStringSubmatch(s); m != nil {
		if v, ok := parseAmountNumber(m[1]); ok {
			return &v, nil
		}
		return nil, nil
	}

	if m := amountSingleRe.FindStringSubmatch(s); m != nil && strings.TrimSpace(strings.Trim(s, "$")) == m[1] {
		if v, ok := parseAmountNumber(m[1]); ok {
			return &v, &v
		}
	}

	return nil, nil
}

func parseAmountNumber(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
