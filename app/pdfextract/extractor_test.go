package pdfextract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/politrack/disclosures/app/breaker"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/httpclient"
	"github.com/politrack/disclosures/app/storage"
)

// fakeFileRepo is an in-memory StoredFileRepository for extractor tests.
type fakeFileRepo struct {
	files  map[string]*database.StoredFile
	nextID int
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*database.StoredFile)}
}

func (r *fakeFileRepo) GetByID(id string) (*database.StoredFile, error) {
	if f, ok := r.files[id]; ok {
		copied := *f
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeFileRepo) GetBySHA256(sha string) (*database.StoredFile, error) {
	for _, f := range r.files {
		if f.SHA256 == sha {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFileRepo) GetBySourceURL(sourceURL string) (*database.StoredFile, error) {
	for _, f := range r.files {
		if f.SourceURL == sourceURL {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFileRepo) Insert(f *database.StoredFile) (string, error) {
	for id, existing := range r.files {
		if existing.SHA256 == f.SHA256 {
			return id, nil
		}
	}
	r.nextID++
	id := "file-" + strconv.Itoa(r.nextID)
	copied := *f
	copied.ID = id
	r.files[id] = &copied
	return id, nil
}

func (r *fakeFileRepo) UpdateParseStatus(id, status, parseError string) error {
	if f, ok := r.files[id]; ok {
		now := time.Now()
		f.ParseStatus = status
		f.ParseError = parseError
		f.ParseDate = &now
	}
	return nil
}

func (r *fakeFileRepo) ListExpired(now time.Time, limit int) ([]database.StoredFile, error) {
	return nil, nil
}

func (r *fakeFileRepo) MarkBlobDeleted(id string) error {
	if f, ok := r.files[id]; ok {
		f.BlobDeleted = true
	}
	return nil
}

func (r *fakeFileRepo) GetCount() (int, error) {
	return len(r.files), nil
}

func newTestExtractor(t *testing.T, repo *fakeFileRepo) *Extractor {
	t.Helper()
	manager := storage.NewManager(storage.NewFSStore(t.TempDir()), repo)
	b := breaker.NewRegistry(5, 30*time.Second).Get("test_pdfs")
	client := httpclient.NewClient("test_pdfs", time.Millisecond, 5*time.Second, b, "DisclosurePipeline/test")
	return NewExtractor(client, manager, "test_pdfs")
}

func TestExtractArchivesBeforeParsingAndRecordsZeroMatches(t *testing.T) {
	pdfBody := []byte("%PDF-1.4 fake document body")
	var downloads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Write(pdfBody)
	}))
	defer server.Close()

	repo := newFakeFileRepo()
	extractor := newTestExtractor(t, repo)
	extractor.extractText = func([]byte) (string, error) {
		return "a scanned page with nothing recognizable on it", nil
	}

	docURL := server.URL + "/ptr-pdfs/2025/20012345.pdf"
	transactions, file, err := extractor.Extract(context.Background(), docURL)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(transactions) != 0 {
		t.Errorf("transactions = %d, want 0", len(transactions))
	}
	if file == nil {
		t.Fatal("expected the document to be archived despite zero matches")
	}

	stored, _ := repo.GetByID(file.ID)
	if stored == nil {
		t.Fatal("stored file row missing")
	}
	if stored.ParseStatus != database.ParseStatusFailed {
		t.Errorf("parse status = %s, want %s", stored.ParseStatus, database.ParseStatusFailed)
	}
	if stored.ParseError != ReasonNoTransactions {
		t.Errorf("parse error = %q, want %q", stored.ParseError, ReasonNoTransactions)
	}

	// The archived blob stays retrievable.
	data, _, err := extractor.archiver.FetchBySourceURL(context.Background(), docURL)
	if err != nil {
		t.Fatalf("fetch from archive failed: %v", err)
	}
	if string(data) != string(pdfBody) {
		t.Error("archived document does not match downloaded bytes")
	}
}

func TestExtractUsesArchiveBeforeDownloading(t *testing.T) {
	var downloads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Write([]byte("%PDF-1.4 fake document body"))
	}))
	defer server.Close()

	repo := newFakeFileRepo()
	extractor := newTestExtractor(t, repo)
	extractor.extractText = func([]byte) (string, error) {
		return "Apple Inc. (AAPL) Purchase 01/02/2025 $1,001 - $15,000", nil
	}

	docURL := server.URL + "/ptr-pdfs/2025/20099999.pdf"

	first, _, err := extractor.Extract(context.Background(), docURL)
	if err != nil {
		t.Fatalf("first extract failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("transactions = %d, want 1", len(first))
	}

	second, _, err := extractor.Extract(context.Background(), docURL)
	if err != nil {
		t.Fatalf("second extract failed: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("transactions on reprocess = %d, want 1", len(second))
	}
	if downloads.Load() != 1 {
		t.Errorf("downloads = %d, want 1 (second pass must hit the archive)", downloads.Load())
	}
}

func TestExtractFollowsLandingPageToPDF(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/view/123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/docs/filing-123.pdf">Download</a></body></html>`))
	})
	mux.HandleFunc("/docs/filing-123.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 fake document body"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	repo := newFakeFileRepo()
	extractor := newTestExtractor(t, repo)
	extractor.extractText = func([]byte) (string, error) {
		return "Tesla Inc. (TSLA) Sale (Full) 02/10/2025 $15,001 - $50,000", nil
	}

	transactions, _, err := extractor.Extract(context.Background(), server.URL+"/view/123")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(transactions))
	}
	if transactions[0].Ticker == nil || *transactions[0].Ticker != "TSLA" {
		t.Error("ticker TSLA not extracted")
	}
}

func TestResolvePDFURLErrors(t *testing.T) {
	_, err := ResolvePDFURL([]byte("<html><body><p>nothing here</p></body></html>"), "https://example.gov/view/1")
	if err == nil {
		t.Fatal("expected an error for a page without a document link")
	}
}

func TestResolvePDFURLRelativeLink(t *testing.T) {
	page := []byte(`<html><body><iframe src="../files/doc.pdf"></iframe></body></html>`)
	got, err := ResolvePDFURL(page, "https://example.gov/filings/view/1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := "https://example.gov/filings/files/doc.pdf"
	if got != want {
		t.Errorf("resolved = %s, want %s", got, want)
	}
}
