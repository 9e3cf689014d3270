package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/politrack/disclosures/app/httpclient"
)

// SenateAdapter queries the Senate EFD search endpoint. Results come back
// as JSON rows whose report column is an HTML link into the filing viewer;
// electronic PTR filings link to a paginated web table, scanned ones to a
// PDF. Either way the transactions are not in the search response, so every
// row is a PDF placeholder record.
type SenateAdapter struct {
	name    string
	baseURL string
	client  *httpclient.Client
}

var _ Adapter = (*SenateAdapter)(nil)

func NewSenateAdapter(name, baseURL string, client *httpclient.Client) *SenateAdapter {
	return &SenateAdapter{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (a *SenateAdapter) Name() string {
	return a.name
}

func (a *SenateAdapter) SourceType() string {
	return "us_senate"
}

// efdResponse is the shape of the EFD search data endpoint.
type efdResponse struct {
	Result string     `json:"result"`
	Data   [][]string `json:"data"`
}

// EFD data row columns: first name, last name, office, report link HTML,
// filing date.
const (
	efdColFirstName = iota
	efdColLastName
	efdColOffice
	efdColReportLink
	efdColFilingDate
	efdColumnCount
)

func (a *SenateAdapter) FetchData(ctx context.Context, lookbackDays int) ([]byte, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -lookbackDays)

	form := url.Values{}
	form.Set("report_types", "[11]") // Periodic Transaction Reports
	form.Set("filer_types", "[1]")   // Senators
	form.Set("submitted_start_date", start.Format("01/02/2006")+" 00:00:00")
	form.Set("submitted_end_date", now.Format("01/02/2006")+" 23:59:59")

	return a.client.Post(ctx, a.baseURL+"/search/report/data/",
		[]byte(form.Encode()), "application/x-www-form-urlencoded")
}

func (a *SenateAdapter) ParseResponse(data []byte, lookbackDays int) ([]RawRecord, error) {
	var resp efdResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode EFD response: %w", err)
	}

	records := make([]RawRecord, 0, len(resp.Data))
	skipped := 0

	for _, row := range resp.Data {
		if len(row) < efdColumnCount {
			skipped++
			continue
		}

		reportURL, err := a.extractReportLink(row[efdColReportLink])
		if err != nil {
			skipped++
			continue
		}

		filingDate := strings.TrimSpace(row[efdColFilingDate])
		fullName := strings.TrimSpace(row[efdColFirstName]) + " " + strings.TrimSpace(row[efdColLastName])

		records = append(records, RawRecord{
			FieldPoliticianName:  strings.TrimSpace(fullName),
			FieldPoliticianRole:  "Senator",
			FieldStateOrCountry:  officeState(row[efdColOffice]),
			FieldTransactionDate: filingDate,
			FieldDisclosureDate:  filingDate,
			FieldAssetName:       "Periodic Transaction Report " + reportID(reportURL),
			FieldAssetTicker:     "N/A",
			FieldAssetType:       PDFPlaceholderAssetType,
			FieldTransactionType: "Other",
			FieldSourceURL:       reportURL,
		})
	}

	if skipped > 0 {
		slog.Debug("Skipped malformed EFD rows", "source", a.name, "skipped", skipped)
	}

	return records, nil
}

// extractReportLink pulls the href out of the report column's HTML fragment
// and resolves it against the EFD host.
func (a *SenateAdapter) extractReportLink(linkHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(linkHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse report link HTML: %w", err)
	}

	href, ok := doc.Find("a").First().Attr("href")
	if !ok || href == "" {
		return "", fmt.Errorf("no report link in row")
	}

	if strings.HasPrefix(href, "http") {
		return href, nil
	}
	return a.baseURL + href, nil
}

// officeState extracts the state abbreviation from an office string like
// "Whitehouse, Sheldon (Senator) (RI)".
func officeState(office string) string {
	office = strings.TrimSpace(office)
	if strings.HasSuffix(office, ")") {
		if idx := strings.LastIndex(office, "("); idx >= 0 {
			state := office[idx+1 : len(office)-1]
			if len(state) == 2 {
				return state
			}
		}
	}
	return ""
}

// reportID returns the trailing path segment of a filing viewer URL.
func reportID(reportURL string) string {
	trimmed := strings.TrimRight(reportURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
