package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/politrack/disclosures/app/breaker"
	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/tasks"
)

type stubPoliticianRepo struct{ count int }

func (s *stubPoliticianRepo) GetByID(id string) (*database.Politician, error) { return nil, nil }
func (s *stubPoliticianRepo) GetByIdentity(firstName, lastName, role, stateOrCountry string) (*database.Politician, error) {
	return nil, nil
}
func (s *stubPoliticianRepo) ListByRole(role string) ([]database.Politician, error) {
	return nil, nil
}
func (s *stubPoliticianRepo) Insert(p *database.Politician) (string, error) { return "", nil }
func (s *stubPoliticianRepo) GetCount() (int, error)                        { return s.count, nil }

type stubDisclosureRepo struct {
	count    int
	bySource map[string]int
}

func (s *stubDisclosureRepo) GetByDedupKey(politicianID string, transactionDate time.Time, assetName, transactionType string, disclosureDate time.Time) (*database.TradingDisclosure, error) {
	return nil, nil
}
func (s *stubDisclosureRepo) Insert(d *database.TradingDisclosure) (string, error) { return "", nil }
func (s *stubDisclosureRepo) UpdateMutable(id string, ticker *string, amountMin, amountMax *int64, rawData map[string]interface{}) error {
	return nil
}
func (s *stubDisclosureRepo) UpdateStatus(id string, status string) error { return nil }
func (s *stubDisclosureRepo) ListByStatus(source, status string, limit int) ([]database.TradingDisclosure, error) {
	return nil, nil
}
func (s *stubDisclosureRepo) GetCount() (int, error) { return s.count, nil }
func (s *stubDisclosureRepo) GetCountBySource() (map[string]int, error) {
	return s.bySource, nil
}

type stubFileRepo struct{}

func (s *stubFileRepo) GetByID(id string) (*database.StoredFile, error)          { return nil, nil }
func (s *stubFileRepo) GetBySHA256(sha string) (*database.StoredFile, error)     { return nil, nil }
func (s *stubFileRepo) GetBySourceURL(url string) (*database.StoredFile, error)  { return nil, nil }
func (s *stubFileRepo) Insert(f *database.StoredFile) (string, error)            { return "", nil }
func (s *stubFileRepo) UpdateParseStatus(id, status, parseError string) error    { return nil }
func (s *stubFileRepo) ListExpired(now time.Time, limit int) ([]database.StoredFile, error) {
	return nil, nil
}
func (s *stubFileRepo) MarkBlobDeleted(id string) error { return nil }
func (s *stubFileRepo) GetCount() (int, error)          { return 0, nil }

type stubJobRepo struct {
	jobs []database.JobExecution
}

func (s *stubJobRepo) Insert(job *database.JobExecution) error { return nil }
func (s *stubJobRepo) GetByID(id string) (*database.JobExecution, error) {
	for _, j := range s.jobs {
		if j.ID == id {
			copied := j
			return &copied, nil
		}
	}
	return nil, nil
}
func (s *stubJobRepo) List(limit int) ([]database.JobExecution, error) { return s.jobs, nil }
func (s *stubJobRepo) GetLastRun(source string) (*database.JobExecution, error) {
	return nil, nil
}

type stubScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (s *stubScheduler) Start() {}
func (s *stubScheduler) Stop()  {}
func (s *stubScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, task)
	return nil
}

func newTestConfigCache(t *testing.T) *config.ConfigCache {
	t.Helper()
	dir := t.TempDir()

	enabled := `type: aggregator
url: https://example.test/trades
settings:
  enabled: true
`
	disabled := `type: aggregator
url: https://example.test/quiet
settings:
  enabled: false
`
	if err := os.WriteFile(filepath.Join(dir, "active_source.yml"), []byte(enabled), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "disabled_source.yml"), []byte(disabled), 0644); err != nil {
		t.Fatal(err)
	}

	cache := config.NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("failed to load test configs: %v", err)
	}
	return cache
}

func newTestServer(t *testing.T, scheduler *stubScheduler, jobs *stubJobRepo) http.Handler {
	t.Helper()
	handler := &Handler{
		configCache: newTestConfigCache(t),
		politicians: &stubPoliticianRepo{count: 7},
		disclosures: &stubDisclosureRepo{count: 42, bySource: map[string]int{"active_source": 42}},
		files:       &stubFileRepo{},
		jobs:        jobs,
		registry:    breaker.NewRegistry(5, 30*time.Second),
		scheduler:   scheduler,
		version:     "test",
	}
	return NewServer(handler, "secret-key")
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, &stubScheduler{}, &stubJobRepo{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["disclosures"] != float64(42) {
		t.Errorf("disclosures = %v, want 42", body["disclosures"])
	}
	if body["loaded_configurations"] != float64(2) {
		t.Errorf("loaded_configurations = %v, want 2", body["loaded_configurations"])
	}
}

func TestAPIRequiresKey(t *testing.T) {
	server := newTestServer(t, &stubScheduler{}, &stubJobRepo{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/runs", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/runs", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong key = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/runs", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status with valid key = %d, want 200", w.Code)
	}
}

func TestTriggerSourceRun(t *testing.T) {
	scheduler := &stubScheduler{}
	server := newTestServer(t, scheduler, &stubJobRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sources/active_source/run", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if len(scheduler.enqueued) != 1 {
		t.Fatalf("enqueued tasks = %d, want 1", len(scheduler.enqueued))
	}
	if scheduler.enqueued[0].GetType() != tasks.TaskTypeRunPipeline {
		t.Errorf("task type = %s, want %s", scheduler.enqueued[0].GetType(), tasks.TaskTypeRunPipeline)
	}
	if scheduler.enqueued[0].GetSourceName() != "active_source" {
		t.Errorf("task source = %s, want active_source", scheduler.enqueued[0].GetSourceName())
	}
}

func TestTriggerUnknownSource(t *testing.T) {
	server := newTestServer(t, &stubScheduler{}, &stubJobRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sources/no_such_source/run", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTriggerDisabledSource(t *testing.T) {
	server := newTestServer(t, &stubScheduler{}, &stubJobRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sources/disabled_source/run", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetRunByID(t *testing.T) {
	jobs := &stubJobRepo{jobs: []database.JobExecution{
		{ID: "run-1", Source: "active_source", OverallStatus: "SUCCESS", RecordsOutput: 90},
	}}
	server := newTestServer(t, &stubScheduler{}, jobs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/runs/run-1", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/runs/run-2", nil)
	req.Header.Set("X-API-Key", "secret-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status for missing run = %d, want 404", w.Code)
	}
}
