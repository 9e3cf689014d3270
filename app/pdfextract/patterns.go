package pdfextract

import (
	"regexp"
	"strings"
	"time"

	"github.com/politrack/disclosures/app/pipeline"
)

// Transaction is one trade recovered from a filing document.
type Transaction struct {
	TransactionDate time.Time
	AssetName       string
	Ticker          *string
	Type            pipeline.TransactionType
	AmountMin       *int64
	AmountMax       *int64
	RawLine         string
}

var (
	ptrDateRe   = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)
	ptrAmountRe = regexp.MustCompile(`(?i)\$[\d,]+\s*-\s*\$[\d,]+|over\s+\$[\d,]+|\$[\d,]+\s*\+|\$[\d,]+`)
	// Owner codes PTR tables prefix asset names with.
	ownerCodeRe = regexp.MustCompile(`^(SP|DC|JT)\s+`)
	// Standalone single-letter transaction codes used in tabular filings.
	txCodeRe = regexp.MustCompile(`(?:^|\s)([PSE])(?:\s|$)`)
)

// Longest keyword first so "sale (partial)" wins over "sale".
var typeKeywords = []struct {
	keyword string
	txType  pipeline.TransactionType
}{
	{"sale (partial)", pipeline.TransactionSale},
	{"sale (full)", pipeline.TransactionSale},
	{"purchase", pipeline.TransactionPurchase},
	{"exchange", pipeline.TransactionExchange},
	{"sale", pipeline.TransactionSale},
}

// ParseTransactions scans extracted document text line by line. A line counts
// as a transaction when it carries both a MM/DD/YYYY date and a recognizable
// transaction type; ticker and amount stay nil when not extractable. Zero
// matches is a valid outcome the caller records as no_transactions_found.
func ParseTransactions(text string) []Transaction {
	var transactions []Transaction

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		txType, typeIdx := matchTransactionType(line)
		if typeIdx < 0 {
			continue
		}

		dateStr := ptrDateRe.FindString(line)
		if dateStr == "" {
			continue
		}
		date, err := time.Parse("1/2/2006", dateStr)
		if err != nil {
			continue
		}

		asset := extractAssetName(line, typeIdx)
		if asset == "" {
			continue
		}

		var min, max *int64
		if amountStr := ptrAmountRe.FindString(line); amountStr != "" {
			min, max = pipeline.ParseAmountRange(amountStr)
		}

		transactions = append(transactions, Transaction{
			TransactionDate: date,
			AssetName:       asset,
			Ticker:          pipeline.ExtractTicker(asset),
			Type:            txType,
			AmountMin:       min,
			AmountMax:       max,
			RawLine:         line,
		})
	}

	return transactions
}

func matchTransactionType(line string) (pipeline.TransactionType, int) {
	lower := strings.ToLower(line)
	for _, k := range typeKeywords {
		if i := strings.Index(lower, k.keyword); i >= 0 {
			return k.txType, i
		}
	}

	if m := txCodeRe.FindStringSubmatchIndex(line); m != nil {
		switch line[m[2]:m[3]] {
		case "P":
			return pipeline.TransactionPurchase, m[2]
		case "S":
			return pipeline.TransactionSale, m[2]
		case "E":
			return pipeline.TransactionExchange, m[2]
		}
	}

	return pipeline.TransactionOther, -1
}

// extractAssetName takes the text left of the transaction type, stripping
// owner codes, dates and amounts that tabular layouts interleave.
func extractAssetName(line string, typeIdx int) string {
	asset := line[:typeIdx]
	asset = ownerCodeRe.ReplaceAllString(asset, "")
	asset = ptrDateRe.ReplaceAllString(asset, "")
	asset = ptrAmountRe.ReplaceAllString(asset, "")
	asset = strings.Trim(asset, " \t-–|")
	return strings.Join(strings.Fields(asset), " ")
}
