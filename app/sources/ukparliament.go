package sources

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/politrack/disclosures/app/httpclient"
)

// UKParliamentAdapter scrapes the published register of members' financial
// interests. Unlike the US sources, entries carry their detail inline in
// the HTML, so no PDF placeholder records are produced.
type UKParliamentAdapter struct {
	name    string
	baseURL string
	client  *httpclient.Client
}

var _ Adapter = (*UKParliamentAdapter)(nil)

func NewUKParliamentAdapter(name, baseURL string, client *httpclient.Client) *UKParliamentAdapter {
	return &UKParliamentAdapter{
		name:    name,
		baseURL: baseURL,
		client:  client,
	}
}

func (a *UKParliamentAdapter) Name() string {
	return a.name
}

func (a *UKParliamentAdapter) SourceType() string {
	return "uk_parliament"
}

func (a *UKParliamentAdapter) FetchData(ctx context.Context, lookbackDays int) ([]byte, error) {
	return a.client.Get(ctx, a.baseURL)
}

func (a *UKParliamentAdapter) ParseResponse(data []byte, lookbackDays int) ([]RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	var records []RawRecord
	skipped := 0

	doc.Find("table.register-interests tbody tr").Each(func(i int, row *goquery.Selection) {
		member := strings.TrimSpace(row.Find("td.member-name").Text())
		registered := strings.TrimSpace(row.Find("td.date-registered").Text())
		description := strings.TrimSpace(row.Find("td.interest-description").Text())
		value := strings.TrimSpace(row.Find("td.interest-value").Text())

		if member == "" || registered == "" || description == "" {
			skipped++
			return
		}

		registeredDate, err := time.Parse("2 January 2006", registered)
		if err != nil {
			skipped++
			return
		}
		if registeredDate.Before(cutoff) {
			return
		}

		records = append(records, RawRecord{
			FieldPoliticianName:  member,
			FieldPoliticianRole:  "MP",
			FieldStateOrCountry:  "UK",
			FieldTransactionDate: registered,
			FieldDisclosureDate:  registered,
			FieldAssetName:       description,
			FieldTransactionType: interestTransactionType(description),
			FieldAmount:          value,
			FieldSourceURL:       a.baseURL,
		})
	})

	if skipped > 0 {
		slog.Debug("Skipped malformed register rows", "source", a.name, "skipped", skipped)
	}

	return records, nil
}

// interestTransactionType maps register wording onto the transaction
// vocabulary shared with the US sources.
func interestTransactionType(description string) string {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "purchase"), strings.Contains(lower, "acquisition"), strings.Contains(lower, "acquired"):
		return "Purchase"
	case strings.Contains(lower, "sale"), strings.Contains(lower, "disposal"), strings.Contains(lower, "sold"):
		return "Sale"
	default:
		return "Other"
	}
}
