package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/politrack/disclosures/app/database"
)

// PublishingConfig carries the per-source persistence knobs.
type PublishingConfig struct {
	BatchSize      int
	UpdateExisting bool
}

// PublishingStage persists normalized disclosures. Duplicates are detected
// against the database dedup key; with update_existing enabled only the
// mutable fields (ticker, amounts, raw data) of an existing row are updated.
// A single record's failure never aborts the batch.
type PublishingStage struct {
	politicians database.PoliticianRepository
	disclosures database.DisclosureRepository
	cfg         PublishingConfig
}

func NewPublishingStage(politicians database.PoliticianRepository, disclosures database.DisclosureRepository, cfg PublishingConfig) *PublishingStage {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &PublishingStage{politicians: politicians, disclosures: disclosures, cfg: cfg}
}

func (s *PublishingStage) Run(records []NormalizedDisclosure) (Metrics, PublishCounts, Status) {
	started := time.Now()
	metrics := Metrics{RecordsIn: len(records)}
	counts := PublishCounts{}

	for i := 0; i < len(records); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		for j := i; j < end; j++ {
			if err := s.publishRecord(&records[j], &counts); err != nil {
				metrics.RecordsFailed++
				if len(metrics.Errors) < maxRecordedErrors {
					metrics.Errors = append(metrics.Errors, fmt.Sprintf("record %d (%s): %v", j, records[j].AssetName, err))
				}
			}
		}
	}

	metrics.RecordsOut = counts.Inserted + counts.Updated
	metrics.RecordsSkipped = counts.SkippedAsDuplicate
	metrics.Duration = time.Since(started)

	status := StatusSuccess
	if metrics.RecordsFailed > 0 {
		status = StatusPartialSuccess
	}

	slog.Info("Publishing finished",
		"inserted", counts.Inserted, "updated", counts.Updated,
		"duplicates", counts.SkippedAsDuplicate, "politicians_created", counts.PoliticiansCreated,
		"failed", metrics.RecordsFailed)

	return metrics, counts, status
}

func (s *PublishingStage) publishRecord(rec *NormalizedDisclosure, counts *PublishCounts) error {
	politicianID, err := s.ensurePolitician(rec, counts)
	if err != nil {
		return err
	}

	existing, err := s.disclosures.GetByDedupKey(
		politicianID, rec.TransactionDate, rec.AssetName, string(rec.TransactionType), rec.DisclosureDate)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate: %w", err)
	}

	if existing != nil {
		if !s.cfg.UpdateExisting {
			counts.SkippedAsDuplicate++
			return nil
		}
		if err := s.disclosures.UpdateMutable(existing.ID, rec.AssetTicker, rec.AmountRangeMin, rec.AmountRangeMax, rec.RawData); err != nil {
			return fmt.Errorf("failed to update disclosure: %w", err)
		}
		counts.Updated++
		return nil
	}

	status := database.DisclosureStatusProcessed
	if rec.NeedsPDFParsing {
		status = database.DisclosureStatusNeedsPDFParsing
	}

	id, err := s.disclosures.Insert(&database.TradingDisclosure{
		PoliticianID:    politicianID,
		TransactionDate: rec.TransactionDate,
		DisclosureDate:  rec.DisclosureDate,
		AssetName:       rec.AssetName,
		AssetTicker:     rec.AssetTicker,
		TransactionType: string(rec.TransactionType),
		AmountRangeMin:  rec.AmountRangeMin,
		AmountRangeMax:  rec.AmountRangeMax,
		Source:          rec.Source,
		RawData:         rec.RawData,
		Status:          status,
	})
	if err != nil {
		return fmt.Errorf("failed to insert disclosure: %w", err)
	}
	if id == "" {
		// Lost the insert race to a concurrent run; the constraint is
		// the arbiter.
		counts.SkippedAsDuplicate++
		return nil
	}

	counts.Inserted++
	return nil
}

// ensurePolitician resolves the identity row, creating it when normalization
// deferred creation. The upsert on the identity constraint makes concurrent
// creates converge on one row.
func (s *PublishingStage) ensurePolitician(rec *NormalizedDisclosure, counts *PublishCounts) (string, error) {
	if rec.PoliticianID != nil {
		return *rec.PoliticianID, nil
	}

	existing, err := s.politicians.GetByIdentity(rec.PoliticianFirstName, rec.PoliticianLastName, rec.PoliticianRole, rec.StateOrCountry)
	if err != nil {
		return "", fmt.Errorf("failed to look up politician: %w", err)
	}
	if existing != nil {
		rec.PoliticianID = &existing.ID
		return existing.ID, nil
	}

	id, err := s.politicians.Insert(&database.Politician{
		FirstName:      rec.PoliticianFirstName,
		LastName:       rec.PoliticianLastName,
		FullName:       rec.PoliticianFullName,
		Role:           rec.PoliticianRole,
		Party:          rec.Party,
		StateOrCountry: rec.StateOrCountry,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create politician: %w", err)
	}

	counts.PoliticiansCreated++
	rec.PoliticianID = &id

	slog.Info("Politician created", "name", rec.PoliticianFullName, "role", rec.PoliticianRole, "state", rec.StateOrCountry)
	return id, nil
}
