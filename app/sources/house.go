package sources

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/politrack/disclosures/app/httpclient"
)

// Index columns in the clerk's yearly financial disclosure index file.
const (
	houseColPrefix = iota
	houseColLast
	houseColFirst
	houseColSuffix
	houseColFilingType
	houseColStateDst
	houseColYear
	houseColFilingDate
	houseColDocID
	houseColumnCount
)

// housePTRFilingType marks Periodic Transaction Reports in the index.
const housePTRFilingType = "P"

// HouseAdapter pulls the US House clerk's yearly ZIP-bundled disclosure
// index and emits one PDF placeholder record per PTR filing. Transaction
// detail lives only in the linked PDFs.
type HouseAdapter struct {
	name    string
	baseURL string
	client  *httpclient.Client
}

var _ Adapter = (*HouseAdapter)(nil)

func NewHouseAdapter(name, baseURL string, client *httpclient.Client) *HouseAdapter {
	return &HouseAdapter{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (a *HouseAdapter) Name() string {
	return a.name
}

func (a *HouseAdapter) SourceType() string {
	return "us_house"
}

func (a *HouseAdapter) FetchData(ctx context.Context, lookbackDays int) ([]byte, error) {
	year := time.Now().UTC().Year()
	url := fmt.Sprintf("%s/%dFD.zip", a.baseURL, year)

	return a.client.Get(ctx, url)
}

func (a *HouseAdapter) ParseResponse(data []byte, lookbackDays int) ([]RawRecord, error) {
	index, err := extractIndexFile(data)
	if err != nil {
		return nil, err
	}

	return a.parseIndex(index, lookbackDays)
}

// extractIndexFile finds the tab-separated index inside the yearly ZIP.
func extractIndexFile(data []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP archive: %w", err)
	}

	for _, file := range reader.File {
		if !strings.HasSuffix(file.Name, ".txt") {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open index file %s: %w", file.Name, err)
		}
		defer rc.Close()

		index, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read index file %s: %w", file.Name, err)
		}

		return index, nil
	}

	return nil, fmt.Errorf("no index file found in ZIP archive")
}

func (a *HouseAdapter) parseIndex(index []byte, lookbackDays int) ([]RawRecord, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	lines := strings.Split(string(index), "\n")
	records := make([]RawRecord, 0, len(lines))
	skipped := 0

	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header row
		}

		fields := strings.Split(line, "\t")
		if len(fields) < houseColumnCount {
			skipped++
			continue
		}
		// The last field often carries a trailing \r from the upstream's
		// CRLF line endings.
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}

		if fields[houseColFilingType] != housePTRFilingType {
			continue
		}

		filingDate, err := time.Parse("1/2/2006", fields[houseColFilingDate])
		if err != nil {
			skipped++
			continue
		}
		if filingDate.Before(cutoff) {
			continue
		}

		docID := fields[houseColDocID]
		fullName := strings.TrimSpace(fields[houseColFirst] + " " + fields[houseColLast])

		records = append(records, RawRecord{
			FieldPoliticianName:  fullName,
			FieldPoliticianRole:  "Representative",
			FieldStateOrCountry:  fields[houseColStateDst],
			FieldTransactionDate: fields[houseColFilingDate],
			FieldDisclosureDate:  fields[houseColFilingDate],
			FieldAssetName:       "Periodic Transaction Report " + docID,
			FieldAssetTicker:     "N/A",
			FieldAssetType:       PDFPlaceholderAssetType,
			FieldTransactionType: "Other",
			FieldDocID:           docID,
			FieldSourceURL:       a.pdfURL(fields[houseColYear], docID),
		})
	}

	if skipped > 0 {
		slog.Debug("Skipped malformed index rows", "source", a.name, "skipped", skipped)
	}

	return records, nil
}

func (a *HouseAdapter) pdfURL(year, docID string) string {
	return fmt.Sprintf("%s/ptr-pdfs/%s/%s.pdf", a.baseURL, year, docID)
}
