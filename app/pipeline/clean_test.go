package pipeline

import (
	"testing"
	"time"

	"github.com/politrack/disclosures/app/sources"
)

func rawRecord(name, txDate, discDate, asset, txType string) RawDisclosure {
	return RawDisclosure{
		Source:     "test_source",
		SourceType: "aggregator",
		ScrapedAt:  time.Now().UTC(),
		RawPayload: sources.RawRecord{
			sources.FieldPoliticianName:  name,
			sources.FieldPoliticianRole:  "Senator",
			sources.FieldStateOrCountry:  "RI",
			sources.FieldTransactionDate: txDate,
			sources.FieldDisclosureDate:  discDate,
			sources.FieldAssetName:       asset,
			sources.FieldTransactionType: txType,
			sources.FieldAmount:          "$1,001 - $15,000",
		},
	}
}

func TestCleaningDropsInvalidRecordsAndContinues(t *testing.T) {
	raws := []RawDisclosure{
		rawRecord("Sheldon Whitehouse", "2025-03-01", "2025-03-10", "Apple Inc. (AAPL)", "Purchase"),
		rawRecord("Sheldon Whitehouse", "", "2025-03-10", "Tesla Inc. (TSLA)", "Purchase"),
		rawRecord("Sheldon Whitehouse", "2025-03-02", "not a date", "Boeing Co. (BA)", "Sale (Full)"),
		rawRecord("", "2025-03-03", "2025-03-10", "Intel Corp. (INTC)", "Sale (Partial)"),
		rawRecord("Sheldon Whitehouse", "2025-03-04", "2025-03-10", "Visa Inc. (V)", "Exchange"),
	}

	stage := NewCleaningStage(CleaningConfig{})
	cleaned, metrics, status := stage.Run(raws)

	if status != StatusPartialSuccess {
		t.Errorf("status = %s, want %s", status, StatusPartialSuccess)
	}
	if len(cleaned) != 2 {
		t.Fatalf("cleaned records = %d, want 2", len(cleaned))
	}
	if metrics.RecordsFailed != 3 {
		t.Errorf("records failed = %d, want 3", metrics.RecordsFailed)
	}
	if len(metrics.Errors) != 3 {
		t.Errorf("recorded errors = %d, want 3", len(metrics.Errors))
	}

	if cleaned[0].TransactionType != TransactionPurchase {
		t.Errorf("transaction type = %s, want %s", cleaned[0].TransactionType, TransactionPurchase)
	}
	if cleaned[1].TransactionType != TransactionExchange {
		t.Errorf("transaction type = %s, want %s", cleaned[1].TransactionType, TransactionExchange)
	}
}

func TestCleaningStrictModeFailsStage(t *testing.T) {
	raws := []RawDisclosure{
		rawRecord("Sheldon Whitehouse", "2025-03-01", "2025-03-10", "Apple Inc. (AAPL)", "Purchase"),
		rawRecord("Sheldon Whitehouse", "", "2025-03-10", "Tesla Inc. (TSLA)", "Purchase"),
	}

	stage := NewCleaningStage(CleaningConfig{StrictValidation: true})
	cleaned, _, status := stage.Run(raws)

	if status != StatusFailed {
		t.Errorf("status = %s, want %s", status, StatusFailed)
	}
	if cleaned != nil {
		t.Errorf("expected no cleaned output, got %d records", len(cleaned))
	}
}

func TestCleaningDeduplicatesWithinBatchFirstWins(t *testing.T) {
	first := rawRecord("Sheldon Whitehouse", "2025-03-01", "2025-03-10", "Apple Inc. (AAPL)", "Purchase")
	first.RawPayload[sources.FieldAmount] = "$1,001 - $15,000"
	duplicate := rawRecord("sheldon whitehouse", "03/01/2025", "2025-03-10", "Apple Inc. (AAPL)", "purchase")
	duplicate.RawPayload[sources.FieldAmount] = "$15,001 - $50,000"

	stage := NewCleaningStage(CleaningConfig{})
	cleaned, metrics, status := stage.Run([]RawDisclosure{first, duplicate})

	if status != StatusSuccess {
		t.Errorf("status = %s, want %s", status, StatusSuccess)
	}
	if len(cleaned) != 1 {
		t.Fatalf("cleaned records = %d, want 1", len(cleaned))
	}
	if metrics.RecordsSkipped != 1 {
		t.Errorf("records skipped = %d, want 1", metrics.RecordsSkipped)
	}
	if cleaned[0].Amount != "$1,001 - $15,000" {
		t.Errorf("amount = %q, want the first record's amount", cleaned[0].Amount)
	}
}

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-03-01", "2025-03-01"},
		{"03/01/2025", "2025-03-01"},
		{"3/1/2025", "2025-03-01"},
		{"1 March 2025", "2025-03-01"},
		{"March 1, 2025", "2025-03-01"},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q) error: %v", tt.in, err)
			continue
		}
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want)
		}
	}

	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("expected error for unparseable date")
	}
}
