package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/sources"
)

// NormalizationConfig carries the per-source identity-resolution knobs.
type NormalizationConfig struct {
	AutoCreatePoliticians bool
}

// NormalizationStage resolves politician identities against the database,
// extracts tickers and converts amount vocabulary into numeric ranges.
// Records whose politician cannot be resolved are dropped unless the source
// allows auto-creation, in which case publishing creates the identity row.
type NormalizationStage struct {
	politicians database.PoliticianRepository
	cfg         NormalizationConfig
}

func NewNormalizationStage(politicians database.PoliticianRepository, cfg NormalizationConfig) *NormalizationStage {
	return &NormalizationStage{politicians: politicians, cfg: cfg}
}

func (s *NormalizationStage) Run(cleaned []CleanedDisclosure) ([]NormalizedDisclosure, Metrics, Status) {
	started := time.Now()
	metrics := Metrics{RecordsIn: len(cleaned)}

	// One candidate listing per role keeps fuzzy matching off the hot path.
	roleCache := make(map[string][]database.Politician)

	normalized := make([]NormalizedDisclosure, 0, len(cleaned))
	for i, rec := range cleaned {
		out, err := s.normalizeRecord(rec, roleCache)
		if err != nil {
			metrics.RecordsFailed++
			if len(metrics.Errors) < maxRecordedErrors {
				metrics.Errors = append(metrics.Errors, fmt.Sprintf("record %d (%s): %v", i, rec.PoliticianName, err))
			}
			continue
		}
		if out.AssetTicker == nil && !out.NeedsPDFParsing {
			if len(metrics.Warnings) < maxRecordedErrors {
				metrics.Warnings = append(metrics.Warnings, fmt.Sprintf("no ticker for asset %q", rec.AssetName))
			}
		}
		normalized = append(normalized, out)
	}

	metrics.RecordsOut = len(normalized)
	metrics.Duration = time.Since(started)

	status := StatusSuccess
	if metrics.RecordsFailed > 0 {
		status = StatusPartialSuccess
	}

	slog.Info("Normalization finished",
		"in", metrics.RecordsIn, "out", metrics.RecordsOut, "failed", metrics.RecordsFailed)

	return normalized, metrics, status
}

func (s *NormalizationStage) normalizeRecord(rec CleanedDisclosure, roleCache map[string][]database.Politician) (NormalizedDisclosure, error) {
	first, last := SplitFullName(rec.PoliticianName)
	if last == "" {
		return NormalizedDisclosure{}, fmt.Errorf("cannot split politician name %q", rec.PoliticianName)
	}

	politicianID, err := s.resolvePolitician(first, last, rec.PoliticianRole, rec.StateOrCountry, roleCache)
	if err != nil {
		return NormalizedDisclosure{}, err
	}
	if politicianID == nil && !s.cfg.AutoCreatePoliticians {
		return NormalizedDisclosure{}, fmt.Errorf("unknown politician %q (%s, %s) and auto-create disabled",
			rec.PoliticianName, rec.PoliticianRole, rec.StateOrCountry)
	}

	var ticker *string
	if !rec.NeedsPDFParsing {
		ticker = resolveTicker(rec)
	}

	min, max := ParseAmountRange(rec.Amount)

	return NormalizedDisclosure{
		PoliticianID:        politicianID,
		PoliticianFirstName: first,
		PoliticianLastName:  last,
		PoliticianFullName:  rec.PoliticianName,
		PoliticianRole:      rec.PoliticianRole,
		Party:               rec.Party,
		StateOrCountry:      rec.StateOrCountry,
		TransactionDate:     rec.TransactionDate,
		DisclosureDate:      rec.DisclosureDate,
		AssetName:           rec.AssetName,
		AssetTicker:         ticker,
		AmountRangeMin:      min,
		AmountRangeMax:      max,
		TransactionType:     rec.TransactionType,
		NeedsPDFParsing:     rec.NeedsPDFParsing,
		Source:              rec.Source,
		SourceURL:           rec.SourceURL,
		RawData:             rec.RawData,
	}, nil
}

// resolvePolitician tries the exact identity key first, then falls back to a
// fuzzy pass over same-role candidates with folded names, nickname expansion
// and initial matching.
func (s *NormalizationStage) resolvePolitician(first, last, role, stateOrCountry string, roleCache map[string][]database.Politician) (*string, error) {
	if p, err := s.politicians.GetByIdentity(first, last, role, stateOrCountry); err != nil {
		return nil, fmt.Errorf("failed to look up politician: %w", err)
	} else if p != nil {
		return &p.ID, nil
	}

	candidates, ok := roleCache[role]
	if !ok {
		var err error
		candidates, err = s.politicians.ListByRole(role)
		if err != nil {
			return nil, fmt.Errorf("failed to list politicians: %w", err)
		}
		roleCache[role] = candidates
	}

	foldedLast := FoldName(last)
	for i := range candidates {
		c := &candidates[i]
		if FoldName(c.LastName) != foldedLast {
			continue
		}
		if stateOrCountry != "" && c.StateOrCountry != "" && c.StateOrCountry != stateOrCountry {
			continue
		}
		if firstNamesMatch(first, c.FirstName) {
			return &c.ID, nil
		}
	}

	return nil, nil
}

func resolveTicker(rec CleanedDisclosure) *string {
	if raw, ok := rec.RawData[sources.FieldAssetTicker].(string); ok {
		if t := CanonicalTicker(raw); t != nil {
			return t
		}
	}
	return ExtractTicker(rec.AssetName)
}
