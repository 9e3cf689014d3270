package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/politrack/disclosures/app/sources"
)

// Layouts tried in order when parsing source dates. Adapters emitting
// ISO dates hit the first layout; US sources use the slash forms.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2 January 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05Z07:00",
}

// maxRecordedErrors caps how many per-record error strings a stage keeps;
// counts are always exact.
const maxRecordedErrors = 20

// CleaningConfig carries the per-source validation knobs.
type CleaningConfig struct {
	StrictValidation bool
}

// CleaningStage validates required fields, parses dates, normalizes the
// transaction type vocabulary and drops in-batch duplicates. In lenient mode
// an invalid record is dropped and counted; in strict mode the first invalid
// record fails the stage.
type CleaningStage struct {
	cfg CleaningConfig
}

func NewCleaningStage(cfg CleaningConfig) *CleaningStage {
	return &CleaningStage{cfg: cfg}
}

func (s *CleaningStage) Run(raws []RawDisclosure) ([]CleanedDisclosure, Metrics, Status) {
	started := time.Now()
	metrics := Metrics{RecordsIn: len(raws)}

	seen := make(map[string]bool, len(raws))
	cleaned := make([]CleanedDisclosure, 0, len(raws))

	for i, raw := range raws {
		rec, err := s.cleanRecord(raw)
		if err != nil {
			if s.cfg.StrictValidation {
				metrics.RecordsFailed++
				metrics.Errors = append(metrics.Errors, fmt.Sprintf("record %d: %v", i, err))
				metrics.Duration = time.Since(started)
				return nil, metrics, StatusFailed
			}
			metrics.RecordsFailed++
			if len(metrics.Errors) < maxRecordedErrors {
				metrics.Errors = append(metrics.Errors, fmt.Sprintf("record %d: %v", i, err))
			}
			continue
		}

		// First record wins within a batch; the database constraint
		// arbitrates across batches.
		key := dedupKey(rec)
		if seen[key] {
			metrics.RecordsSkipped++
			continue
		}
		seen[key] = true

		cleaned = append(cleaned, rec)
	}

	metrics.RecordsOut = len(cleaned)
	metrics.Duration = time.Since(started)

	status := StatusSuccess
	if metrics.RecordsFailed > 0 {
		status = StatusPartialSuccess
	}

	slog.Info("Cleaning finished",
		"in", metrics.RecordsIn, "out", metrics.RecordsOut,
		"failed", metrics.RecordsFailed, "duplicates", metrics.RecordsSkipped)

	return cleaned, metrics, status
}

func (s *CleaningStage) cleanRecord(raw RawDisclosure) (CleanedDisclosure, error) {
	rec := raw.RawPayload

	name := strings.TrimSpace(sources.GetString(rec, sources.FieldPoliticianName))
	assetName := strings.TrimSpace(sources.GetString(rec, sources.FieldAssetName))
	txTypeRaw := strings.TrimSpace(sources.GetString(rec, sources.FieldTransactionType))

	var missing []string
	if name == "" {
		missing = append(missing, sources.FieldPoliticianName)
	}
	if assetName == "" {
		missing = append(missing, sources.FieldAssetName)
	}
	if txTypeRaw == "" {
		missing = append(missing, sources.FieldTransactionType)
	}
	if sources.GetString(rec, sources.FieldTransactionDate) == "" {
		missing = append(missing, sources.FieldTransactionDate)
	}
	if sources.GetString(rec, sources.FieldDisclosureDate) == "" {
		missing = append(missing, sources.FieldDisclosureDate)
	}
	if len(missing) > 0 {
		return CleanedDisclosure{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	txDate, err := ParseDate(sources.GetString(rec, sources.FieldTransactionDate))
	if err != nil {
		return CleanedDisclosure{}, fmt.Errorf("invalid transaction_date: %w", err)
	}
	discDate, err := ParseDate(sources.GetString(rec, sources.FieldDisclosureDate))
	if err != nil {
		return CleanedDisclosure{}, fmt.Errorf("invalid disclosure_date: %w", err)
	}

	return CleanedDisclosure{
		Source:          raw.Source,
		PoliticianName:  name,
		PoliticianRole:  strings.TrimSpace(sources.GetString(rec, sources.FieldPoliticianRole)),
		Party:           strings.TrimSpace(sources.GetString(rec, sources.FieldParty)),
		StateOrCountry:  strings.TrimSpace(sources.GetString(rec, sources.FieldStateOrCountry)),
		TransactionDate: txDate,
		DisclosureDate:  discDate,
		AssetName:       assetName,
		TransactionType: NormalizeTransactionType(txTypeRaw),
		Amount:          strings.TrimSpace(sources.GetString(rec, sources.FieldAmount)),
		NeedsPDFParsing: sources.ShouldParsePDF(rec),
		SourceURL:       raw.SourceURL,
		RawData:         rec,
	}, nil
}

func dedupKey(rec CleanedDisclosure) string {
	return strings.Join([]string{
		FoldName(rec.PoliticianName),
		rec.TransactionDate.Format("2006-01-02"),
		strings.ToLower(rec.AssetName),
		string(rec.TransactionType),
	}, "|")
}

// ParseDate tries the known source date layouts in order.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// NormalizeTransactionType maps the many source spellings onto the closed
// vocabulary. Unknown wording becomes OTHER rather than an error.
func NormalizeTransactionType(raw string) TransactionType {
	switch s := strings.ToLower(strings.TrimSpace(raw)); {
	case s == "p", strings.Contains(s, "purchase"), strings.Contains(s, "buy"), strings.Contains(s, "bought"):
		return TransactionPurchase
	case strings.Contains(s, "sale"), strings.Contains(s, "sell"), strings.Contains(s, "sold"), s == "s", strings.HasPrefix(s, "s ("):
		return TransactionSale
	case strings.Contains(s, "exchange"), s == "e":
		return TransactionExchange
	default:
		return TransactionOther
	}
}
