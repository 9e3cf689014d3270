package database

import (
	"time"
)

// Politician is the canonical identity a disclosure is attributed to.
// Identity uniqueness is (first_name, last_name, role, state_or_country),
// enforced by a database constraint.
type Politician struct {
	ID             string
	FirstName      string
	LastName       string
	FullName       string
	Role           string
	Party          string
	StateOrCountry string
	BioguideID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Disclosure status lifecycle: pending -> needs_pdf_parsing -> processed | failed.
const (
	DisclosureStatusPending         = "pending"
	DisclosureStatusNeedsPDFParsing = "needs_pdf_parsing"
	DisclosureStatusProcessed       = "processed"
	DisclosureStatusFailed          = "failed"
)

// TradingDisclosure is the durable, published form of a disclosure record.
// The dedup key across repeated pipeline runs is
// (politician_id, transaction_date, asset_name, transaction_type, disclosure_date).
type TradingDisclosure struct {
	ID              string
	PoliticianID    string
	TransactionDate time.Time
	DisclosureDate  time.Time
	AssetName       string
	AssetTicker     *string
	TransactionType string
	AmountRangeMin  *int64
	AmountRangeMax  *int64
	Source          string
	RawData         map[string]interface{}
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Parse status lifecycle for archived artifacts: pending -> success | failed | skipped.
const (
	ParseStatusPending = "pending"
	ParseStatusSuccess = "success"
	ParseStatusFailed  = "failed"
	ParseStatusSkipped = "skipped"
)

// StoredFile is the metadata row for one archived raw artifact. The blob
// itself lives in object storage, addressed by a deterministic path and
// verified by sha256.
type StoredFile struct {
	ID            string
	StorageBucket string
	StoragePath   string
	FileType      string
	SizeBytes     int64
	SHA256        string
	SourceURL     string
	SourceType    string
	DownloadDate  time.Time
	ParseStatus   string
	ParseDate     *time.Time
	ParseError    string
	ExpiresAt     *time.Time
	BlobDeleted   bool
	CreatedAt     time.Time
}

// JobExecution is the persisted run summary the scheduler and monitoring
// read back.
type JobExecution struct {
	ID              string
	Source          string
	SourceType      string
	OverallStatus   string
	RecordsInput    int
	RecordsOutput   int
	RecordsSkipped  int
	RecordsFailed   int
	DurationSeconds float64
	Errors          []string
	Warnings        []string
	StartedAt       time.Time
	FinishedAt      time.Time
}
