package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/politrack/disclosures/app/httpclient"
)

// AggregatorAdapter consumes a third-party JSON API that republishes US
// congressional trades in a structured form. The aggregator already
// resolves assets and tickers, so its records skip PDF parsing entirely.
type AggregatorAdapter struct {
	name    string
	baseURL string
	client  *httpclient.Client
}

var _ Adapter = (*AggregatorAdapter)(nil)

func NewAggregatorAdapter(name, baseURL string, client *httpclient.Client) *AggregatorAdapter {
	return &AggregatorAdapter{
		name:    name,
		baseURL: baseURL,
		client:  client,
	}
}

func (a *AggregatorAdapter) Name() string {
	return a.name
}

func (a *AggregatorAdapter) SourceType() string {
	return "aggregator"
}

type aggregatorTrade struct {
	Politician      string `json:"politician"`
	Chamber         string `json:"chamber"`
	Party           string `json:"party"`
	State           string `json:"state"`
	TransactionDate string `json:"transaction_date"`
	DisclosureDate  string `json:"disclosure_date"`
	Asset           string `json:"asset"`
	Ticker          string `json:"ticker"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	URL             string `json:"url"`
}

func (a *AggregatorAdapter) FetchData(ctx context.Context, lookbackDays int) ([]byte, error) {
	separator := "?"
	if strings.Contains(a.baseURL, "?") {
		separator = "&"
	}
	url := a.baseURL + separator + "days=" + strconv.Itoa(lookbackDays)

	return a.client.Get(ctx, url)
}

func (a *AggregatorAdapter) ParseResponse(data []byte, lookbackDays int) ([]RawRecord, error) {
	var trades []aggregatorTrade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("failed to decode aggregator response: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	records := make([]RawRecord, 0, len(trades))
	for _, trade := range trades {
		// The API is asked for the lookback window but is not trusted to
		// honor it.
		if disclosed, err := time.Parse("2006-01-02", trade.DisclosureDate); err == nil && disclosed.Before(cutoff) {
			continue
		}

		rec := RawRecord{
			FieldPoliticianName:  trade.Politician,
			FieldPoliticianRole:  chamberRole(trade.Chamber),
			FieldParty:           trade.Party,
			FieldStateOrCountry:  trade.State,
			FieldTransactionDate: trade.TransactionDate,
			FieldDisclosureDate:  trade.DisclosureDate,
			FieldAssetName:       trade.Asset,
			FieldTransactionType: trade.Type,
			FieldAmount:          trade.Amount,
			FieldSourceURL:       trade.URL,
		}
		if trade.Ticker != "" {
			rec[FieldAssetTicker] = trade.Ticker
		}

		records = append(records, rec)
	}

	return records, nil
}

func chamberRole(chamber string) string {
	switch strings.ToLower(strings.TrimSpace(chamber)) {
	case "senate":
		return "Senator"
	case "house":
		return "Representative"
	default:
		return chamber
	}
}
