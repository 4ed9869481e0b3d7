package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewdesk/console/internal/domain"
	"github.com/crewdesk/console/internal/repo"
	"github.com/crewdesk/console/internal/service"
)

// errBoom is the store failure injected by memStore.
var errBoom = errors.New("connection reset by peer")

// Write kinds recorded by memStore.
const (
	kindTour     = "tour"
	kindJob      = "job"
	kindDate     = "date"
	kindLink     = "link"
	kindLocation = "location"
)

type link struct {
	job  uuid.UUID
	dept domain.Department
}

// memStore is an in-memory stand-in for Postgres shared by all fake repos.
// It records every successful write in order and can fail the nth write of
// one kind, or every delete.
type memStore struct {
	tours     map[uuid.UUID]domain.Tour
	dates     map[uuid.UUID]domain.TourDate
	jobs      []domain.Job
	links     map[link]bool
	locations map[string]domain.Location

	// runs is shared with goroutines that finish a claim concurrently.
	runsMu sync.Mutex
	runs   map[string]domain.ProvisioningRun

	writes  []string
	counts  map[string]int
	failOn  string
	failNth int

	failDeletes bool
	upserts     int
	lookups     int
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newMemStore() *memStore {
	return &memStore{
		tours:     map[uuid.UUID]domain.Tour{},
		dates:     map[uuid.UUID]domain.TourDate{},
		links:     map[link]bool{},
		locations: map[string]domain.Location{},
		runs:      map[string]domain.ProvisioningRun{},
		counts:    map[string]int{},
	}
}

// failNthWrite makes the nth write of kind fail with errBoom.
func (s *memStore) failNthWrite(kind string, n int) {
	s.failOn, s.failNth = kind, n
}

func (s *memStore) write(kind string) error {
	s.counts[kind]++
	if kind == s.failOn && s.counts[kind] == s.failNth {
		return errBoom
	}
	s.writes = append(s.writes, kind)
	return nil
}

func (s *memStore) jobsOfType(t domain.JobType) []domain.Job {
	var out []domain.Job
	for _, j := range s.jobs {
		if j.Type == t {
			out = append(out, j)
		}
	}
	return out
}

func (s *memStore) linksFor(jobID uuid.UUID) []domain.Department {
	var out []domain.Department
	for _, d := range domain.Departments {
		if s.links[link{jobID, d}] {
			out = append(out, d)
		}
	}
	return out
}

func (s *memStore) graphRepos() service.GraphRepos {
	return service.GraphRepos{
		Tours:       fakeTours{s},
		Dates:       fakeDates{s},
		Jobs:        fakeJobs{s},
		Departments: fakeDepts{s},
		Locations:   fakeLocations{s},
	}
}

// ---- tours -----------------------------------------------------------------

type fakeTours struct{ s *memStore }

func (f fakeTours) Create(_ context.Context, t domain.Tour) (domain.Tour, error) {
	if err := f.s.write(kindTour); err != nil {
		return domain.Tour{}, err
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	f.s.tours[t.ID] = t
	return t, nil
}

func (f fakeTours) GetByID(_ context.Context, id uuid.UUID) (domain.Tour, error) {
	t, ok := f.s.tours[id]
	if !ok {
		return domain.Tour{}, domain.ErrNotFound
	}
	return t, nil
}

func (f fakeTours) List(_ context.Context) ([]domain.Tour, error) {
	out := []domain.Tour{}
	for _, t := range f.s.tours {
		out = append(out, t)
	}
	return out, nil
}

func (f fakeTours) Delete(_ context.Context, id uuid.UUID) error {
	if f.s.failDeletes {
		return errBoom
	}
	if _, ok := f.s.tours[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.s.tours, id)
	return nil
}

// ---- tour dates ------------------------------------------------------------

type fakeDates struct{ s *memStore }

func (f fakeDates) Create(_ context.Context, td domain.TourDate) (domain.TourDate, error) {
	if err := f.s.write(kindDate); err != nil {
		return domain.TourDate{}, err
	}
	td.ID = uuid.New()
	f.s.dates[td.ID] = td
	return td, nil
}

func (f fakeDates) ListByTour(_ context.Context, tourID uuid.UUID) ([]domain.TourDate, error) {
	out := []domain.TourDate{}
	for _, td := range f.s.dates {
		if td.TourID == tourID {
			out = append(out, td)
		}
	}
	return out, nil
}

func (f fakeDates) Delete(_ context.Context, id uuid.UUID) error {
	if f.s.failDeletes {
		return errBoom
	}
	if _, ok := f.s.dates[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.s.dates, id)
	return nil
}

// ---- jobs ------------------------------------------------------------------

type fakeJobs struct{ s *memStore }

func (f fakeJobs) Create(_ context.Context, j domain.Job) (domain.Job, error) {
	if err := f.s.write(kindJob); err != nil {
		return domain.Job{}, err
	}
	j.ID = uuid.New()
	j.Departments = []domain.Department{}
	f.s.jobs = append(f.s.jobs, j)
	return j, nil
}

func (f fakeJobs) List(_ context.Context) ([]domain.Job, error) {
	out := make([]domain.Job, len(f.s.jobs))
	for i, j := range f.s.jobs {
		j.Departments = f.s.linksFor(j.ID)
		out[i] = j
	}
	return out, nil
}

func (f fakeJobs) ListByTour(ctx context.Context, tourID uuid.UUID) ([]domain.Job, error) {
	all, _ := f.List(ctx)
	out := []domain.Job{}
	for _, j := range all {
		if j.TourID != nil && *j.TourID == tourID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f fakeJobs) Delete(_ context.Context, id uuid.UUID) error {
	if f.s.failDeletes {
		return errBoom
	}
	for i, j := range f.s.jobs {
		if j.ID == id {
			f.s.jobs = append(f.s.jobs[:i], f.s.jobs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- job departments -------------------------------------------------------

type fakeDepts struct{ s *memStore }

func (f fakeDepts) Add(_ context.Context, jobID uuid.UUID, d domain.Department) error {
	if err := f.s.write(kindLink); err != nil {
		return err
	}
	f.s.links[link{jobID, d}] = true
	return nil
}

func (f fakeDepts) Remove(_ context.Context, jobID uuid.UUID, d domain.Department) error {
	if f.s.failDeletes {
		return errBoom
	}
	if !f.s.links[link{jobID, d}] {
		return domain.ErrNotFound
	}
	delete(f.s.links, link{jobID, d})
	return nil
}

// ---- locations -------------------------------------------------------------

type fakeLocations struct{ s *memStore }

func (f fakeLocations) FindByName(_ context.Context, name string) (domain.Location, error) {
	f.s.lookups++
	loc, ok := f.s.locations[name]
	if !ok {
		return domain.Location{}, fmt.Errorf("fake: %w", domain.ErrNotFound)
	}
	return loc, nil
}

func (f fakeLocations) Upsert(_ context.Context, name string) (domain.Location, bool, error) {
	f.s.upserts++
	if loc, ok := f.s.locations[name]; ok {
		return loc, false, nil
	}
	if err := f.s.write(kindLocation); err != nil {
		return domain.Location{}, false, err
	}
	loc := domain.Location{ID: uuid.New(), Name: name}
	f.s.locations[name] = loc
	return loc, true, nil
}

func (f fakeLocations) ListPaged(_ context.Context, p domain.PaginationParams) ([]domain.Location, int64, error) {
	out := []domain.Location{}
	for _, l := range f.s.locations {
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

// ---- provisioning runs -----------------------------------------------------

type fakeRuns struct{ s *memStore }

func (f fakeRuns) Claim(_ context.Context, key string, staleBefore time.Time) (bool, domain.ProvisioningRun, error) {
	f.s.runsMu.Lock()
	defer f.s.runsMu.Unlock()
	if held, ok := f.s.runs[key]; ok && (!held.Pending() || !held.ClaimedAt.Before(staleBefore)) {
		return false, held, nil
	}
	run := domain.ProvisioningRun{IdempotencyKey: key, ClaimedAt: time.Now()}
	f.s.runs[key] = run
	return true, run, nil
}

func (f fakeRuns) Get(_ context.Context, key string) (domain.ProvisioningRun, error) {
	f.s.runsMu.Lock()
	defer f.s.runsMu.Unlock()
	run, ok := f.s.runs[key]
	if !ok {
		return domain.ProvisioningRun{}, domain.ErrNotFound
	}
	return run, nil
}

func (f fakeRuns) Complete(_ context.Context, key string, tourID uuid.UUID) error {
	f.s.runsMu.Lock()
	defer f.s.runsMu.Unlock()
	run, ok := f.s.runs[key]
	if !ok || !run.Pending() {
		return domain.ErrNotFound
	}
	run.TourID = &tourID
	f.s.runs[key] = run
	return nil
}

func (f fakeRuns) Release(_ context.Context, key string) error {
	f.s.runsMu.Lock()
	defer f.s.runsMu.Unlock()
	if run, ok := f.s.runs[key]; ok && run.Pending() {
		delete(f.s.runs, key)
	}
	return nil
}

// run returns the recorded run for key under the lock.
func (s *memStore) run(key string) (domain.ProvisioningRun, bool) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	run, ok := s.runs[key]
	return run, ok
}

// seedRun records run directly, as if another instance had claimed it.
func (s *memStore) seedRun(run domain.ProvisioningRun) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	s.runs[run.IdempotencyKey] = run
}

// compile-time checks
var (
	_ repo.TourRepo            = fakeTours{}
	_ repo.TourDateRepo        = fakeDates{}
	_ repo.JobRepo             = fakeJobs{}
	_ repo.JobDepartmentRepo   = fakeDepts{}
	_ repo.LocationRepo        = fakeLocations{}
	_ repo.ProvisioningRunRepo = fakeRuns{}
)
