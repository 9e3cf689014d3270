package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/httpclient"
	"github.com/politrack/disclosures/app/pdfextract"
	"github.com/politrack/disclosures/app/sources"
)

// How many placeholder disclosures one task run works through. PDF downloads
// are rate-limited, so a run is bounded in wall time too.
const reparseBatchLimit = 50

// ReparsePDFsTask picks up disclosures published as needs_pdf_parsing,
// extracts the transactions from their filing documents and inserts them as
// regular disclosures. The placeholder row only ever transitions status.
type ReparsePDFsTask struct {
	Task
	SourceConfig *config.SourceConfig
	extractor    *pdfextract.Extractor
	disclosures  database.DisclosureRepository
}

func NewReparsePDFsTask(sourceConfig *config.SourceConfig, extractor *pdfextract.Extractor,
	disclosures database.DisclosureRepository) *ReparsePDFsTask {
	return &ReparsePDFsTask{
		Task:         NewTask(TaskTypeReparsePDFs, sourceConfig.Name),
		SourceConfig: sourceConfig,
		extractor:    extractor,
		disclosures:  disclosures,
	}
}

func (t *ReparsePDFsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	pending, err := t.disclosures.ListByStatus(t.SourceName, database.DisclosureStatusNeedsPDFParsing, reparseBatchLimit)
	if err != nil {
		return fmt.Errorf("failed to list disclosures needing PDF parsing: %w", err)
	}

	if len(pending) == 0 {
		slog.Debug("No disclosures need PDF parsing", "source", t.SourceName)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, placeholder := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.reparseDisclosure(ctx, &placeholder); err != nil {
			errorCount++
			if httpclient.IsCircuitOpen(err) {
				// No point hammering the remaining documents this run.
				slog.Warn("Circuit open, deferring remaining documents", "source", t.SourceName, "error", err)
				break
			}
			slog.Error("Failed to reparse disclosure", "disclosure_id", placeholder.ID, "error", err)
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ReparsePDFsTask) reparseDisclosure(ctx context.Context, placeholder *database.TradingDisclosure) error {
	pdfURL, _ := placeholder.RawData[sources.FieldSourceURL].(string)
	if pdfURL == "" {
		if err := t.disclosures.UpdateStatus(placeholder.ID, database.DisclosureStatusFailed); err != nil {
			return err
		}
		return fmt.Errorf("placeholder %s has no source URL", placeholder.ID)
	}

	transactions, _, err := t.extractor.Extract(ctx, pdfURL)
	if err != nil {
		if errors.Is(err, pdfextract.ErrNoPDFLink) {
			// Permanent: the landing page has no document to parse.
			return t.disclosures.UpdateStatus(placeholder.ID, database.DisclosureStatusFailed)
		}
		return err
	}

	if len(transactions) == 0 {
		return t.disclosures.UpdateStatus(placeholder.ID, database.DisclosureStatusFailed)
	}

	inserted := 0
	for _, tx := range transactions {
		id, err := t.disclosures.Insert(&database.TradingDisclosure{
			PoliticianID:    placeholder.PoliticianID,
			TransactionDate: tx.TransactionDate,
			DisclosureDate:  placeholder.DisclosureDate,
			AssetName:       tx.AssetName,
			AssetTicker:     tx.Ticker,
			TransactionType: string(tx.Type),
			AmountRangeMin:  tx.AmountMin,
			AmountRangeMax:  tx.AmountMax,
			Source:          placeholder.Source,
			RawData: map[string]interface{}{
				sources.FieldSourceURL: pdfURL,
				"raw_line":             tx.RawLine,
				"placeholder_id":       placeholder.ID,
			},
			Status: database.DisclosureStatusProcessed,
		})
		if err != nil {
			return fmt.Errorf("failed to insert extracted transaction: %w", err)
		}
		if id != "" {
			inserted++
		}
	}

	slog.Debug("Filing document reparsed",
		"disclosure_id", placeholder.ID, "transactions", len(transactions), "inserted", inserted)

	return t.disclosures.UpdateStatus(placeholder.ID, database.DisclosureStatusProcessed)
}
