package pipeline

import (
	"regexp"
	"strings"
)

var tickerRe = regexp.MustCompile(`\(([A-Z]{1,5}(?:\.[A-Z])?)\)`)

// tickerSymbolRe is the stored form of a ticker: 1-5 capital letters.
var tickerSymbolRe = regexp.MustCompile(`^[A-Z]{1,5}$`)

// CanonicalTicker folds a raw symbol into the stored form. Dotted
// share-class symbols ("BRK.B") lose the dot; anything that does not
// reduce to 1-5 capital letters is rejected.
func CanonicalTicker(raw string) *string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	if !tickerSymbolRe.MatchString(s) {
		return nil
	}
	return &s
}

// Well-known issuers whose filings frequently spell the company name without
// a parenthetical symbol. Keys are normalized with normalizeAssetName.
var companyTickers = map[string]string{
	"apple":              "AAPL",
	"microsoft":          "MSFT",
	"alphabet":           "GOOGL",
	"amazon":             "AMZN",
	"amazoncom":          "AMZN",
	"nvidia":             "NVDA",
	"tesla":              "TSLA",
	"meta platforms":     "META",
	"berkshire hathaway": "BRK.B",
	"jpmorgan chase":     "JPM",
	"exxon mobil":        "XOM",
	"johnson johnson":    "JNJ",
	"visa":               "V",
	"walmart":            "WMT",
	"procter gamble":     "PG",
	"boeing":             "BA",
	"intel":              "INTC",
}

// ExtractTicker pulls a parenthesized symbol out of an asset name, falling
// back to the company-name lookup table. A nil result is a valid outcome:
// bonds, funds and real estate simply have no ticker.
func ExtractTicker(assetName string) *string {
	if m := tickerRe.FindStringSubmatch(assetName); m != nil {
		return CanonicalTicker(m[1])
	}
	if t, ok := companyTickers[normalizeAssetName(assetName)]; ok {
		return CanonicalTicker(t)
	}
	return nil
}

var assetSuffixes = []string{"common stock", "class a", "class b", "class c", "corporation", "corp", "inc", "co", "ltd", "plc"}

func normalizeAssetName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")
	for trimmed := true; trimmed; {
		trimmed = false
		for _, suffix := range assetSuffixes {
			if strings.HasSuffix(s, " "+suffix) {
				s = strings.TrimSpace(strings.TrimSuffix(s, " "+suffix))
				trimmed = true
			}
		}
	}
	return s
}
