package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/politrack/disclosures/app/sources"
	"github.com/politrack/disclosures/app/storage"
)

// IngestionConfig carries the per-source knobs the ingestion stage honors.
type IngestionConfig struct {
	LookbackDays int
	BatchSize    int
	ArchiveRaw   bool
}

// IngestionStage fetches raw records through a source adapter and optionally
// archives the raw payloads batch by batch. Zero records inside the lookback
// window is a valid, successful outcome.
type IngestionStage struct {
	adapter  sources.Adapter
	archiver *storage.Manager
	cfg      IngestionConfig
}

func NewIngestionStage(adapter sources.Adapter, archiver *storage.Manager, cfg IngestionConfig) *IngestionStage {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &IngestionStage{adapter: adapter, archiver: archiver, cfg: cfg}
}

func (s *IngestionStage) Run(ctx context.Context) ([]RawDisclosure, Metrics, Status) {
	started := time.Now()
	metrics := Metrics{}

	records, err := sources.Fetch(ctx, s.adapter, s.cfg.LookbackDays)
	if err != nil {
		metrics.Errors = append(metrics.Errors, err.Error())
		metrics.Duration = time.Since(started)
		return nil, metrics, StatusFailed
	}

	metrics.RecordsIn = len(records)
	now := time.Now().UTC()

	raws := make([]RawDisclosure, 0, len(records))
	for _, rec := range records {
		raws = append(raws, RawDisclosure{
			Source:     s.adapter.Name(),
			SourceType: s.adapter.SourceType(),
			RawPayload: rec,
			ScrapedAt:  now,
			SourceURL:  sources.GetString(rec, sources.FieldSourceURL),
		})
	}

	if s.cfg.ArchiveRaw && s.archiver != nil && len(records) > 0 {
		s.archiveBatches(ctx, records, now, &metrics)
	}

	metrics.RecordsOut = len(raws)
	metrics.Duration = time.Since(started)

	slog.Info("Ingestion finished",
		"source", s.adapter.Name(), "records", len(raws),
		"duration", metrics.Duration.Round(time.Millisecond))

	return raws, metrics, StatusSuccess
}

// archiveBatches writes the fetched records to the archive in batch_size
// chunks. Archival failure degrades to a warning; the fetched records are
// already in hand and the run continues.
func (s *IngestionStage) archiveBatches(ctx context.Context, records []sources.RawRecord, now time.Time, metrics *Metrics) {
	for i := 0; i < len(records); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}

		payload, err := json.Marshal(records[i:end])
		if err != nil {
			metrics.Warnings = append(metrics.Warnings, fmt.Sprintf("failed to marshal raw batch %d: %v", i/s.cfg.BatchSize, err))
			continue
		}

		_, err = s.archiver.Archive(ctx, storage.ArchiveInput{
			Source:     s.adapter.Name(),
			SourceType: s.adapter.SourceType(),
			SourceURL:  fmt.Sprintf("ingest://%s/%s/batch-%d", s.adapter.Name(), now.Format("20060102T150405"), i/s.cfg.BatchSize),
			Bucket:     storage.BucketAPIResponses,
			FileType:   "json",
			Data:       payload,
		})
		if err != nil {
			metrics.Warnings = append(metrics.Warnings, fmt.Sprintf("failed to archive raw batch %d: %v", i/s.cfg.BatchSize, err))
		}
	}
}
