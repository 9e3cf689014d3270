package pipeline

import (
	"time"

	"github.com/politrack/disclosures/app/sources"
)

// Status is the outcome of one stage or one whole run. A run is FAILED only
// when a stage is FAILED outright; dropped records alone make it
// PARTIAL_SUCCESS at worst.
type Status string

const (
	StatusSuccess        Status = "SUCCESS"
	StatusPartialSuccess Status = "PARTIAL_SUCCESS"
	StatusFailed         Status = "FAILED"
)

// TransactionType is the closed vocabulary every source's wording is
// normalized into.
type TransactionType string

const (
	TransactionPurchase TransactionType = "PURCHASE"
	TransactionSale     TransactionType = "SALE"
	TransactionExchange TransactionType = "EXCHANGE"
	TransactionOther    TransactionType = "OTHER"
)

// Metrics carries per-stage counts; the orchestrator aggregates them into
// the run summary.
type Metrics struct {
	RecordsIn      int
	RecordsOut     int
	RecordsSkipped int
	RecordsFailed  int
	Duration       time.Duration
	Errors         []string
	Warnings       []string
}

// RawDisclosure wraps one loosely-typed adapter record. It exists only for
// the duration of a run and is consumed solely by the cleaning stage.
type RawDisclosure struct {
	Source     string
	SourceType string
	RawPayload sources.RawRecord
	ScrapedAt  time.Time
	SourceURL  string
}

// CleanedDisclosure has passed required-field validation, date parsing and
// in-batch deduplication.
type CleanedDisclosure struct {
	Source          string
	PoliticianName  string
	PoliticianRole  string
	Party           string
	StateOrCountry  string
	TransactionDate time.Time
	DisclosureDate  time.Time
	AssetName       string
	TransactionType TransactionType
	Amount          string
	NeedsPDFParsing bool
	SourceURL       string
	RawData         sources.RawRecord
}

// NormalizedDisclosure is database-ready. PoliticianID stays nil until
// publishing resolves or creates the identity row.
type NormalizedDisclosure struct {
	PoliticianID        *string
	PoliticianFirstName string
	PoliticianLastName  string
	PoliticianFullName  string
	PoliticianRole      string
	Party               string
	StateOrCountry      string
	TransactionDate     time.Time
	DisclosureDate      time.Time
	AssetName           string
	AssetTicker         *string
	AmountRangeMin      *int64
	AmountRangeMax      *int64
	TransactionType     TransactionType
	NeedsPDFParsing     bool
	Source              string
	SourceURL           string
	RawData             sources.RawRecord
}

// PublishCounts is the publishing stage's per-run summary.
type PublishCounts struct {
	Inserted           int
	Updated            int
	SkippedAsDuplicate int
	PoliticiansCreated int
}

// RunSummary is the contract the scheduler and monitoring depend on.
type RunSummary struct {
	ID              string             `json:"id"`
	Source          string             `json:"source"`
	SourceType      string             `json:"source_type"`
	OverallStatus   Status             `json:"overall_status"`
	RecordsInput    int                `json:"records_input"`
	RecordsOutput   int                `json:"records_output"`
	RecordsSkipped  int                `json:"records_skipped"`
	RecordsFailed   int                `json:"records_failed"`
	DurationSeconds float64            `json:"duration_seconds"`
	Errors          []string           `json:"errors"`
	Warnings        []string           `json:"warnings"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
	Stages          map[string]Metrics `json:"stages"`
	Publish         PublishCounts      `json:"publish"`
}
