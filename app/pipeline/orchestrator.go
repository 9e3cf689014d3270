package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/politrack/disclosures/app/breaker"
	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/httpclient"
	"github.com/politrack/disclosures/app/sources"
	"github.com/politrack/disclosures/app/storage"
)

// Stage names as they appear in run summaries.
const (
	StageIngestion     = "ingestion"
	StageCleaning      = "cleaning"
	StageNormalization = "normalization"
	StagePublishing    = "publishing"
)

// Orchestrator runs the four stages in sequence for one source and persists
// the run summary. One orchestrator serves every source; the HTTP client and
// circuit breaker are per-source singletons so concurrent runs of the same
// source share one rate limiter.
type Orchestrator struct {
	registry    *breaker.Registry
	politicians database.PoliticianRepository
	disclosures database.DisclosureRepository
	jobs        database.JobExecutionRepository
	archiver    *storage.Manager
	userAgent   string
	runTimeout  time.Duration

	mu      sync.Mutex
	clients map[string]*httpclient.Client
}

func NewOrchestrator(registry *breaker.Registry, politicians database.PoliticianRepository,
	disclosures database.DisclosureRepository, jobs database.JobExecutionRepository,
	archiver *storage.Manager, userAgent string, runTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		politicians: politicians,
		disclosures: disclosures,
		jobs:        jobs,
		archiver:    archiver,
		userAgent:   userAgent,
		runTimeout:  runTimeout,
		clients:     make(map[string]*httpclient.Client),
	}
}

// Run executes one full pipeline run for a source. Stage failures mark the
// run FAILED and skip the remaining stages; dropped records alone degrade
// the run to PARTIAL_SUCCESS. The summary is persisted either way.
func (o *Orchestrator) Run(ctx context.Context, sourceConfig *config.SourceConfig) (*RunSummary, error) {
	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	started := time.Now()
	summary := &RunSummary{
		ID:         uuid.NewString(),
		Source:     sourceConfig.Name,
		SourceType: sourceConfig.Type,
		StartedAt:  started.UTC(),
		Stages:     make(map[string]Metrics, 4),
	}

	slog.Info("Pipeline run started", "run_id", summary.ID, "source", sourceConfig.Name)

	adapter, err := o.buildAdapter(sourceConfig)
	if err != nil {
		summary.OverallStatus = StatusFailed
		summary.Errors = append(summary.Errors, err.Error())
		o.finish(summary, started)
		return summary, err
	}

	settings := sourceConfig.Settings

	ingest := NewIngestionStage(adapter, o.archiver, IngestionConfig{
		LookbackDays: settings.LookbackDays,
		BatchSize:    settings.BatchSize,
		ArchiveRaw:   settings.ArchiveRaw,
	})
	raws, ingestMetrics, ingestStatus := ingest.Run(ctx)
	summary.Stages[StageIngestion] = ingestMetrics
	summary.RecordsInput = ingestMetrics.RecordsIn
	if ingestStatus == StatusFailed {
		summary.OverallStatus = StatusFailed
		o.finish(summary, started)
		return summary, fmt.Errorf("ingestion failed for %s", sourceConfig.Name)
	}

	clean := NewCleaningStage(CleaningConfig{StrictValidation: settings.StrictValidation})
	cleaned, cleanMetrics, cleanStatus := clean.Run(raws)
	summary.Stages[StageCleaning] = cleanMetrics
	if cleanStatus == StatusFailed {
		summary.OverallStatus = StatusFailed
		o.finish(summary, started)
		return summary, fmt.Errorf("cleaning failed for %s", sourceConfig.Name)
	}

	normalize := NewNormalizationStage(o.politicians, NormalizationConfig{
		AutoCreatePoliticians: settings.AutoCreatePoliticians,
	})
	normalized, normMetrics, normStatus := normalize.Run(cleaned)
	summary.Stages[StageNormalization] = normMetrics
	if normStatus == StatusFailed {
		summary.OverallStatus = StatusFailed
		o.finish(summary, started)
		return summary, fmt.Errorf("normalization failed for %s", sourceConfig.Name)
	}

	publish := NewPublishingStage(o.politicians, o.disclosures, PublishingConfig{
		BatchSize:      settings.BatchSize,
		UpdateExisting: settings.UpdateExisting,
	})
	pubMetrics, counts, pubStatus := publish.Run(normalized)
	summary.Stages[StagePublishing] = pubMetrics
	summary.Publish = counts
	if pubStatus == StatusFailed {
		summary.OverallStatus = StatusFailed
		o.finish(summary, started)
		return summary, fmt.Errorf("publishing failed for %s", sourceConfig.Name)
	}

	// Dropped records degrade a stage to PARTIAL_SUCCESS, never the run:
	// the run fails only when a stage fails outright.
	summary.RecordsOutput = pubMetrics.RecordsOut
	summary.OverallStatus = StatusSuccess

	o.finish(summary, started)
	return summary, nil
}

func (o *Orchestrator) buildAdapter(sourceConfig *config.SourceConfig) (sources.Adapter, error) {
	return sources.New(sourceConfig, o.ClientFor(sourceConfig))
}

// ClientFor returns the per-source HTTP client, creating it on first use.
// Concurrent work against the same upstream (a scheduled run, an
// API-triggered run, a PDF reparse) shares one rate limiter this way.
func (o *Orchestrator) ClientFor(sourceConfig *config.SourceConfig) *httpclient.Client {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[sourceConfig.Name]; ok {
		return c
	}

	settings := sourceConfig.Settings
	client := httpclient.NewClient(
		sourceConfig.Name,
		time.Duration(settings.RequestDelay)*time.Second,
		time.Duration(settings.Timeout)*time.Second,
		o.registry.Get(sourceConfig.Name),
		o.userAgent,
	)
	o.clients[sourceConfig.Name] = client
	return client
}

// finish aggregates the stage metrics, logs the outcome and persists the
// run summary. Persistence failure is logged, not returned; the run already
// happened.
func (o *Orchestrator) finish(summary *RunSummary, started time.Time) {
	finished := time.Now()
	summary.FinishedAt = finished.UTC()
	summary.DurationSeconds = finished.Sub(started).Seconds()

	for _, m := range summary.Stages {
		summary.RecordsSkipped += m.RecordsSkipped
		summary.RecordsFailed += m.RecordsFailed
		summary.Errors = append(summary.Errors, m.Errors...)
		summary.Warnings = append(summary.Warnings, m.Warnings...)
	}

	slog.Info("Pipeline run finished",
		"run_id", summary.ID, "source", summary.Source, "status", summary.OverallStatus,
		"input", summary.RecordsInput, "output", summary.RecordsOutput,
		"skipped", summary.RecordsSkipped, "failed", summary.RecordsFailed,
		"duration", time.Duration(summary.DurationSeconds*float64(time.Second)).Round(time.Millisecond))

	if o.jobs == nil {
		return
	}
	if err := o.jobs.Insert(&database.JobExecution{
		ID:              summary.ID,
		Source:          summary.Source,
		SourceType:      summary.SourceType,
		OverallStatus:   string(summary.OverallStatus),
		RecordsInput:    summary.RecordsInput,
		RecordsOutput:   summary.RecordsOutput,
		RecordsSkipped:  summary.RecordsSkipped,
		RecordsFailed:   summary.RecordsFailed,
		DurationSeconds: summary.DurationSeconds,
		Errors:          summary.Errors,
		Warnings:        summary.Warnings,
		StartedAt:       summary.StartedAt,
		FinishedAt:      summary.FinishedAt,
	}); err != nil {
		slog.Error("Failed to persist run summary", "run_id", summary.ID, "error", err)
	}
}
