package database

import (
	"time"
)

type PoliticianRepository interface {
	GetByID(id string) (*Politician, error)
	GetByIdentity(firstName, lastName, role, stateOrCountry string) (*Politician, error)
	ListByRole(role string) ([]Politician, error)
	Insert(p *Politician) (string, error)
	GetCount() (int, error)
}

type DisclosureRepository interface {
	GetByDedupKey(politicianID string, transactionDate time.Time, assetName, transactionType string, disclosureDate time.Time) (*TradingDisclosure, error)
	Insert(d *TradingDisclosure) (string, error)
	UpdateMutable(id string, ticker *string, amountMin, amountMax *int64, rawData map[string]interface{}) error
	UpdateStatus(id string, status string) error
	ListByStatus(source, status string, limit int) ([]TradingDisclosure, error)
	GetCount() (int, error)
	GetCountBySource() (map[string]int, error)
}

type StoredFileRepository interface {
	GetByID(id string) (*StoredFile, error)
	GetBySHA256(sha256 string) (*StoredFile, error)
	GetBySourceURL(sourceURL string) (*StoredFile, error)
	Insert(f *StoredFile) (string, error)
	UpdateParseStatus(id, parseStatus, parseError string) error
	ListExpired(now time.Time, limit int) ([]StoredFile, error)
	MarkBlobDeleted(id string) error
	GetCount() (int, error)
}

type JobExecutionRepository interface {
	Insert(job *JobExecution) error
	GetByID(id string) (*JobExecution, error)
	List(limit int) ([]JobExecution, error)
	GetLastRun(source string) (*JobExecution, error)
}
