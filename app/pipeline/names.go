package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nameSuffixes = map[string]bool{
	"jr":  true,
	"sr":  true,
	"ii":  true,
	"iii": true,
	"iv":  true,
	"md":  true,
	"phd": true,
	"esq": true,
}

// Common given-name nicknames, both directions, keyed by folded form.
var nicknames = map[string]string{
	"bill":    "william",
	"billy":   "william",
	"will":    "william",
	"bob":     "robert",
	"rob":     "robert",
	"bobby":   "robert",
	"dick":    "richard",
	"rick":    "richard",
	"rich":    "richard",
	"jim":     "james",
	"jimmy":   "james",
	"mike":    "michael",
	"tom":     "thomas",
	"tommy":   "thomas",
	"dan":     "daniel",
	"danny":   "daniel",
	"dave":    "david",
	"joe":     "joseph",
	"joey":    "joseph",
	"chuck":   "charles",
	"charlie": "charles",
	"ted":     "edward",
	"ed":      "edward",
	"eddie":   "edward",
	"tony":    "anthony",
	"steve":   "steven",
	"ken":     "kenneth",
	"andy":    "andrew",
	"drew":    "andrew",
	"chris":   "christopher",
	"nick":    "nicholas",
	"pat":     "patrick",
	"liz":     "elizabeth",
	"beth":    "elizabeth",
	"betty":   "elizabeth",
	"kate":    "katherine",
	"kathy":   "katherine",
	"katie":   "katherine",
	"peggy":   "margaret",
	"maggie":  "margaret",
	"debbie":  "deborah",
	"deb":     "deborah",
	"sue":     "susan",
	"nancy":   "ann",
	"sandy":   "sandra",
	"abe":     "abraham",
	"al":      "albert",
}

// SplitFullName handles both "Last, First Middle" and "First Middle Last"
// orderings, dropping honorific suffixes. Middle names and initials fold into
// the first name.
func SplitFullName(full string) (first, last string) {
	s := strings.TrimSpace(full)
	if s == "" {
		return "", ""
	}

	if i := strings.Index(s, ","); i >= 0 {
		last = strings.TrimSpace(s[:i])
		rest := strings.Fields(stripNameSuffixes(s[i+1:]))
		first = strings.Join(rest, " ")
		return first, last
	}

	parts := strings.Fields(stripNameSuffixes(s))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func stripNameSuffixes(s string) string {
	parts := strings.Fields(s)
	for len(parts) > 1 {
		tail := strings.ToLower(strings.Trim(parts[len(parts)-1], ".,"))
		if !nameSuffixes[tail] {
			break
		}
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, " ")
}

// FoldName lowercases, strips diacritics and punctuation, and collapses
// whitespace, so "José Martínez-García" and "jose martinez garcia" compare
// equal.
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '\'', r == '.':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// firstNamesMatch compares folded first names, treating a nickname and its
// formal form as equal and accepting an initial against the full name.
func firstNamesMatch(a, b string) bool {
	fa, fb := canonicalFirstName(a), canonicalFirstName(b)
	if fa == "" || fb == "" {
		return false
	}
	if fa == fb {
		return true
	}
	// Initial vs full name: "J" matches "James".
	if len(fa) == 1 && strings.HasPrefix(fb, fa) {
		return true
	}
	if len(fb) == 1 && strings.HasPrefix(fa, fb) {
		return true
	}
	return false
}

func canonicalFirstName(name string) string {
	parts := strings.Fields(FoldName(name))
	if len(parts) == 0 {
		return ""
	}
	head := parts[0]
	if formal, ok := nicknames[head]; ok {
		return formal
	}
	return head
}
