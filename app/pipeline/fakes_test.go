package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/politrack/disclosures/app/database"
)

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int64PtrString(v *int64) string {
	if v == nil {
		return "nil"
	}
	return strconv.FormatInt(*v, 10)
}

// fakePoliticianRepo is an in-memory PoliticianRepository sufficient for
// stage tests.
type fakePoliticianRepo struct {
	mu          sync.Mutex
	politicians map[string]*database.Politician
	nextID      int
}

var _ database.PoliticianRepository = (*fakePoliticianRepo)(nil)

func newFakePoliticianRepo() *fakePoliticianRepo {
	return &fakePoliticianRepo{politicians: make(map[string]*database.Politician)}
}

func (r *fakePoliticianRepo) identityKey(firstName, lastName, role, stateOrCountry string) string {
	return strings.Join([]string{firstName, lastName, role, stateOrCountry}, "|")
}

func (r *fakePoliticianRepo) GetByID(id string) (*database.Politician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.politicians {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePoliticianRepo) GetByIdentity(firstName, lastName, role, stateOrCountry string) (*database.Politician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.politicians[r.identityKey(firstName, lastName, role, stateOrCountry)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakePoliticianRepo) ListByRole(role string) ([]database.Politician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.Politician
	for _, p := range r.politicians {
		if p.Role == role {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePoliticianRepo) Insert(p *database.Politician) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.identityKey(p.FirstName, p.LastName, p.Role, p.StateOrCountry)
	if existing, ok := r.politicians[key]; ok {
		return existing.ID, nil
	}
	r.nextID++
	cp := *p
	cp.ID = fmt.Sprintf("pol-%d", r.nextID)
	r.politicians[key] = &cp
	return cp.ID, nil
}

func (r *fakePoliticianRepo) GetCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.politicians), nil
}

// fakeDisclosureRepo is an in-memory DisclosureRepository with the same
// conflict semantics as the real one: Insert returns "" on a dedup-key hit.
type fakeDisclosureRepo struct {
	mu          sync.Mutex
	disclosures map[string]*database.TradingDisclosure
	nextID      int
}

var _ database.DisclosureRepository = (*fakeDisclosureRepo)(nil)

func newFakeDisclosureRepo() *fakeDisclosureRepo {
	return &fakeDisclosureRepo{disclosures: make(map[string]*database.TradingDisclosure)}
}

func disclosureKey(politicianID string, transactionDate time.Time, assetName, transactionType string, disclosureDate time.Time) string {
	return strings.Join([]string{
		politicianID, transactionDate.Format("2006-01-02"), assetName, transactionType, disclosureDate.Format("2006-01-02"),
	}, "|")
}

func (r *fakeDisclosureRepo) GetByDedupKey(politicianID string, transactionDate time.Time, assetName, transactionType string, disclosureDate time.Time) (*database.TradingDisclosure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.disclosures[disclosureKey(politicianID, transactionDate, assetName, transactionType, disclosureDate)]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeDisclosureRepo) Insert(d *database.TradingDisclosure) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := disclosureKey(d.PoliticianID, d.TransactionDate, d.AssetName, d.TransactionType, d.DisclosureDate)
	if _, ok := r.disclosures[key]; ok {
		return "", nil
	}
	r.nextID++
	cp := *d
	cp.ID = fmt.Sprintf("disc-%d", r.nextID)
	r.disclosures[key] = &cp
	return cp.ID, nil
}

func (r *fakeDisclosureRepo) UpdateMutable(id string, ticker *string, amountMin, amountMax *int64, rawData map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disclosures {
		if d.ID == id {
			d.AssetTicker = ticker
			d.AmountRangeMin = amountMin
			d.AmountRangeMax = amountMax
			d.RawData = rawData
			return nil
		}
	}
	return fmt.Errorf("disclosure %s not found", id)
}

func (r *fakeDisclosureRepo) UpdateStatus(id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disclosures {
		if d.ID == id {
			d.Status = status
			return nil
		}
	}
	return fmt.Errorf("disclosure %s not found", id)
}

func (r *fakeDisclosureRepo) ListByStatus(source, status string, limit int) ([]database.TradingDisclosure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.TradingDisclosure
	for _, d := range r.disclosures {
		if d.Source == source && d.Status == status {
			out = append(out, *d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeDisclosureRepo) GetCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.disclosures), nil
}

func (r *fakeDisclosureRepo) GetCountBySource() (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, d := range r.disclosures {
		out[d.Source]++
	}
	return out, nil
}

// fakeJobRepo records run summaries in memory.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs []*database.JobExecution
}

var _ database.JobExecutionRepository = (*fakeJobRepo)(nil)

func (r *fakeJobRepo) Insert(job *database.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs = append(r.jobs, &cp)
	return nil
}

func (r *fakeJobRepo) GetByID(id string) (*database.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) List(limit int) ([]database.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.JobExecution
	for i := len(r.jobs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, *r.jobs[i])
	}
	return out, nil
}

func (r *fakeJobRepo) GetLastRun(source string) (*database.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.jobs) - 1; i >= 0; i-- {
		if r.jobs[i].Source == source {
			cp := *r.jobs[i]
			return &cp, nil
		}
	}
	return nil, nil
}
