package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/crewdesk/console/internal/domain"
	"github.com/crewdesk/console/internal/metrics"
	"github.com/crewdesk/console/internal/repo"
)

// ViewCache stores rendered views by key.
// Get reports the key's generation; Set drops the value if Invalidate has
// bumped the generation since.
type ViewCache interface {
	Invalidator
	Get(ctx context.Context, key string) (value []byte, gen uint64, ok bool, err error)
	Set(ctx context.Context, key string, gen uint64, value []byte) error
}

// CatalogService serves the read-only views of tours, jobs and locations.
// The tours and jobs listings are cached and refreshed after provisioning.
type CatalogService struct {
	tours     repo.TourRepo
	dates     repo.TourDateRepo
	jobs      repo.JobRepo
	locations repo.LocationRepo
	cache     ViewCache
	log       *slog.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(tours repo.TourRepo, dates repo.TourDateRepo, jobs repo.JobRepo,
	locations repo.LocationRepo, cache ViewCache, log *slog.Logger) *CatalogService {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogService{tours: tours, dates: dates, jobs: jobs, locations: locations, cache: cache, log: log}
}

// ListTours returns all tours, newest first.
func (s *CatalogService) ListTours(ctx context.Context) ([]domain.Tour, error) {
	tours, err := cached(ctx, s, CacheKeyTours, s.tours.List)
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.ListTours: %w", err)
	}
	return tours, nil
}

// GetTour returns a tour with its dates in chronological order.
// Returns domain.ErrNotFound if the tour does not exist.
func (s *CatalogService) GetTour(ctx context.Context, id uuid.UUID) (domain.TourDetail, error) {
	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return domain.TourDetail{}, fmt.Errorf("service.CatalogService.GetTour: %w", err)
	}
	dates, err := s.dates.ListByTour(ctx, id)
	if err != nil {
		return domain.TourDetail{}, fmt.Errorf("service.CatalogService.GetTour: %w", err)
	}
	if dates == nil {
		dates = []domain.TourDate{}
	}
	return domain.TourDetail{Tour: tour, Dates: dates}, nil
}

// ListJobs returns every job with its departments ordered by start time.
func (s *CatalogService) ListJobs(ctx context.Context) ([]domain.Job, error) {
	jobs, err := cached(ctx, s, CacheKeyJobs, s.jobs.List)
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.ListJobs: %w", err)
	}
	return jobs, nil
}

// ListLocations returns one page of locations ordered by name.
func (s *CatalogService) ListLocations(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Location], error) {
	items, total, err := s.locations.ListPaged(ctx, p)
	if err != nil {
		return domain.Page[domain.Location]{}, fmt.Errorf("service.CatalogService.ListLocations: %w", err)
	}
	if items == nil {
		items = []domain.Location{}
	}
	return domain.Page[domain.Location]{Items: items, Total: total, PaginationParams: p}, nil
}

// cached serves key from the view cache, falling back to load on a miss.
// Cache errors are logged and treated as misses so a cache outage never
// blocks reads. The fill is tagged with the generation read before loading,
// so an invalidation that lands mid-load discards it.
func cached[T any](ctx context.Context, s *CatalogService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	raw, gen, hit, err := s.cache.Get(ctx, key)
	readOK := err == nil
	if err != nil {
		s.log.WarnContext(ctx, "view cache read failed", "key", key, "error", err)
	}
	if hit {
		var out []T
		if err := json.Unmarshal(raw, &out); err == nil {
			metrics.RecordCacheRequest(key, true)
			return out, nil
		}
		s.log.WarnContext(ctx, "view cache entry corrupt", "key", key)
	}
	metrics.RecordCacheRequest(key, false)

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}

	if !readOK {
		return out, nil
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, gen, raw); err != nil {
			s.log.WarnContext(ctx, "view cache write failed", "key", key, "error", err)
		}
	}
	return out, nil
}
