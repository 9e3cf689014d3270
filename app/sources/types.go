package sources

import (
	"context"
	"fmt"

	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/httpclient"
)

// RawRecord is one loosely-typed disclosure record as an adapter emitted it.
// Adapters normalize their upstream's field names to the canonical keys
// below; everything else the upstream sent rides along untouched.
type RawRecord map[string]interface{}

// Canonical raw record keys.
const (
	FieldPoliticianName  = "politician_name"
	FieldPoliticianRole  = "politician_role"
	FieldParty           = "party"
	FieldStateOrCountry  = "state_or_country"
	FieldTransactionDate = "transaction_date"
	FieldDisclosureDate  = "disclosure_date"
	FieldAssetName       = "asset_name"
	FieldAssetTicker     = "asset_ticker"
	FieldAssetType       = "asset_type"
	FieldTransactionType = "transaction_type"
	FieldAmount          = "amount"
	FieldSourceURL       = "source_url"
	FieldDocID           = "doc_id"
)

// PDFPlaceholderAssetType marks records whose transactions live only inside
// a PDF document; the record is published with status needs_pdf_parsing and
// filled in by the PDF reprocessing task.
const PDFPlaceholderAssetType = "PDF Disclosed Filing"

// Adapter is implemented once per jurisdiction/source. Concrete adapters
// supply only the two hooks; Fetch is the shared template.
type Adapter interface {
	Name() string
	SourceType() string

	// FetchData retrieves the raw upstream payload (HTML, ZIP, JSON).
	FetchData(ctx context.Context, lookbackDays int) ([]byte, error)

	// ParseResponse turns a raw payload into loosely-typed records,
	// dropping anything outside the lookback window.
	ParseResponse(data []byte, lookbackDays int) ([]RawRecord, error)
}

// Fetch runs the fetch-then-parse template shared by every adapter.
func Fetch(ctx context.Context, a Adapter, lookbackDays int) ([]RawRecord, error) {
	data, err := a.FetchData(ctx, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from %s: %w", a.Name(), err)
	}

	records, err := a.ParseResponse(data, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response from %s: %w", a.Name(), err)
	}

	return records, nil
}

// ShouldParsePDF reports whether a record is a PDF-only placeholder whose
// transactions must be extracted from the linked document.
func ShouldParsePDF(rec RawRecord) bool {
	assetType, _ := rec[FieldAssetType].(string)
	if assetType == PDFPlaceholderAssetType {
		return true
	}
	ticker, _ := rec[FieldAssetTicker].(string)
	return ticker == "N/A"
}

// GetString reads a string field from a raw record, tolerating absent or
// non-string values.
func GetString(rec RawRecord, key string) string {
	v, _ := rec[key].(string)
	return v
}

// New builds the adapter for a source configuration.
func New(sourceConfig *config.SourceConfig, client *httpclient.Client) (Adapter, error) {
	switch sourceConfig.Type {
	case "us_house":
		return NewHouseAdapter(sourceConfig.Name, sourceConfig.URL, client), nil
	case "us_senate":
		return NewSenateAdapter(sourceConfig.Name, sourceConfig.URL, client), nil
	case "uk_parliament":
		return NewUKParliamentAdapter(sourceConfig.Name, sourceConfig.URL, client), nil
	case "aggregator":
		return NewAggregatorAdapter(sourceConfig.Name, sourceConfig.URL, client), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", sourceConfig.Type)
	}
}
