package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/httpclient"
	"github.com/politrack/disclosures/app/storage"
)

// ErrNoPDFLink is returned when a filing's landing page carries no link to
// the actual document.
var ErrNoPDFLink = errors.New("no_pdf_link_found")

// ReasonNoTransactions is the parse_error recorded for documents whose text
// yields zero transaction matches.
const ReasonNoTransactions = "no_transactions_found"

// Pages with fewer extractable characters than this are treated as scanned
// images and sent to OCR.
const minPageTextLen = 16

// Extractor downloads filing PDFs, archives them before parsing, and
// recovers transactions from their text. Rate limiting and circuit breaking
// ride on the injected HTTP client exactly as they do for index fetches.
type Extractor struct {
	client   *httpclient.Client
	archiver *storage.Manager
	source   string
	ocr      ocrEngine

	// Overridable in tests; reads the document text without real PDF bytes.
	extractText func([]byte) (string, error)
}

func NewExtractor(client *httpclient.Client, archiver *storage.Manager, source string) *Extractor {
	e := &Extractor{
		client:   client,
		archiver: archiver,
		source:   source,
		ocr:      newOCREngine(),
	}
	e.extractText = e.documentText
	return e
}

// Extract fetches a filing document and parses its transactions. The archive
// is consulted first so reprocessing never re-downloads; fresh downloads are
// archived before any parsing happens. A document with zero recognizable
// transactions returns an empty slice and a failed parse status, not an
// error.
func (e *Extractor) Extract(ctx context.Context, pdfURL string) ([]Transaction, *database.StoredFile, error) {
	data, file, err := e.archiver.FetchBySourceURL(ctx, pdfURL)
	if err != nil {
		return nil, nil, err
	}

	if data == nil {
		data, err = e.download(ctx, pdfURL)
		if err != nil {
			return nil, nil, err
		}

		file, err = e.archiver.Archive(ctx, storage.ArchiveInput{
			Source:     e.source,
			SourceType: "pdf",
			SourceURL:  pdfURL,
			Bucket:     storage.BucketRawPDFs,
			FileType:   "pdf",
			Identifier: documentIdentifier(pdfURL),
			Data:       data,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	text, err := e.extractText(data)
	if err != nil {
		if statusErr := e.archiver.SetParseStatus(file.ID, database.ParseStatusFailed, err.Error()); statusErr != nil {
			slog.Error("Failed to record parse status", "file_id", file.ID, "error", statusErr)
		}
		return nil, file, fmt.Errorf("failed to extract text from %s: %w", pdfURL, err)
	}

	transactions := ParseTransactions(text)
	if len(transactions) == 0 {
		if err := e.archiver.SetParseStatus(file.ID, database.ParseStatusFailed, ReasonNoTransactions); err != nil {
			slog.Error("Failed to record parse status", "file_id", file.ID, "error", err)
		}
		slog.Warn("No transactions found in document", "source", e.source, "url", pdfURL)
		return nil, file, nil
	}

	if err := e.archiver.SetParseStatus(file.ID, database.ParseStatusSuccess, ""); err != nil {
		slog.Error("Failed to record parse status", "file_id", file.ID, "error", err)
	}

	slog.Info("Document parsed", "source", e.source, "url", pdfURL, "transactions", len(transactions))
	return transactions, file, nil
}

// download fetches the URL, following one level of HTML landing page to the
// embedded document link when the response is not a PDF.
func (e *Extractor) download(ctx context.Context, pdfURL string) ([]byte, error) {
	data, err := e.client.Get(ctx, pdfURL)
	if err != nil {
		return nil, err
	}
	if isPDF(data) {
		return data, nil
	}

	embedded, err := ResolvePDFURL(data, pdfURL)
	if err != nil {
		return nil, err
	}

	data, err = e.client.Get(ctx, embedded)
	if err != nil {
		return nil, err
	}
	if !isPDF(data) {
		return nil, fmt.Errorf("linked document at %s is not a PDF", embedded)
	}
	return data, nil
}

// ResolvePDFURL finds the document link inside an HTML viewer page,
// resolving it against the page URL.
func ResolvePDFURL(pageHTML []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse landing page: %w", err)
	}

	var href string
	doc.Find("a[href], iframe[src], embed[src], object[data]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"href", "src", "data"} {
			if v, ok := s.Attr(attr); ok && strings.Contains(strings.ToLower(v), ".pdf") {
				href = v
				return false
			}
		}
		return true
	})
	if href == "" {
		return "", fmt.Errorf("%w in %s", ErrNoPDFLink, pageURL)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid document link %s: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// documentText extracts text page by page, falling back to OCR for pages
// that read as near-empty (scanned images).
func (e *Extractor) documentText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil || len(strings.TrimSpace(text)) < minPageTextLen {
			if ocrText, ocrErr := e.ocr.PageText(data, i); ocrErr == nil {
				text = ocrText
			} else if err != nil {
				slog.Debug("Page text extraction failed", "page", i, "error", err, "ocr_error", ocrErr)
			}
		}

		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}

func documentIdentifier(pdfURL string) string {
	u, err := url.Parse(pdfURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
