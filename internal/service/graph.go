package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/crewdesk/console/internal/domain"
	"github.com/crewdesk/console/internal/metrics"
	"github.com/crewdesk/console/internal/repo"
)

// DefaultDateTitleFormat names per-date jobs after their tour.
const DefaultDateTitleFormat = "%s (Tour Date)"

// GraphRepos are the stores the graph builder writes to.
type GraphRepos struct {
	Tours       repo.TourRepo
	Dates       repo.TourDateRepo
	Jobs        repo.JobRepo
	Departments repo.JobDepartmentRepo
	Locations   repo.LocationRepo
}

// GraphOptions tune how a tour graph is written.
type GraphOptions struct {
	// Rollback deletes everything a failed build created before the error is
	// returned. With Rollback off, a failure leaves the records written so far.
	Rollback bool

	// DateTitleFormat is a fmt format with one %s for the tour title.
	// Empty means DefaultDateTitleFormat.
	DateTitleFormat string
}

// BuildInput is a validated tour ready to be written.
// Dates must be non-empty and sorted ascending.
type BuildInput struct {
	Title       string
	Description string
	Color       string
	Departments []domain.Department
	Dates       []domain.ValidatedDate
}

// GraphBuilder writes a tour, its umbrella job, one tour date and job per
// date, and the department links of every job. Writes are issued one at a
// time in a fixed order and never retried.
type GraphBuilder struct {
	repos GraphRepos
	opts  GraphOptions
	log   *slog.Logger
}

// NewGraphBuilder constructs a GraphBuilder.
func NewGraphBuilder(repos GraphRepos, opts GraphOptions, log *slog.Logger) *GraphBuilder {
	if opts.DateTitleFormat == "" {
		opts.DateTitleFormat = DefaultDateTitleFormat
	}
	if log == nil {
		log = slog.Default()
	}
	return &GraphBuilder{repos: repos, opts: opts, log: log}
}

// Build writes the tour graph for in and returns the created tour.
//
// Order: tour, umbrella job, umbrella department links, then for each date in
// order its location, tour date, per-date job and department links. The first
// failing write stops the build; dates after it are never touched. Errors from
// the store are returned as *domain.StoreError.
func (b *GraphBuilder) Build(ctx context.Context, in BuildInput) (domain.Tour, error) {
	if len(in.Dates) == 0 {
		return domain.Tour{}, fmt.Errorf("service.GraphBuilder.Build: %w: no valid dates", domain.ErrValidation)
	}

	var undo undoLog
	tour, err := b.build(ctx, in, &undo)
	if err == nil {
		return tour, nil
	}

	err = fmt.Errorf("service.GraphBuilder.Build: %w", err)
	if !b.opts.Rollback {
		return domain.Tour{}, err
	}

	// The caller may already have given up; compensation runs regardless.
	if undoErr := undo.unwind(context.WithoutCancel(ctx), b.log); undoErr != nil {
		metrics.RecordCompensation(false)
		return domain.Tour{}, errors.Join(err, fmt.Errorf("rollback incomplete: %w", undoErr))
	}
	metrics.RecordCompensation(true)
	return domain.Tour{}, err
}

func (b *GraphBuilder) build(ctx context.Context, in BuildInput, undo *undoLog) (domain.Tour, error) {
	tour, err := b.repos.Tours.Create(ctx, domain.Tour{
		Name:        in.Title,
		Description: in.Description,
		Color:       in.Color,
	})
	if err != nil {
		return domain.Tour{}, &domain.StoreError{Step: "create tour", Err: err}
	}
	undo.push("delete tour", func(ctx context.Context) error { return b.repos.Tours.Delete(ctx, tour.ID) })

	first, last := in.Dates[0].Date, in.Dates[len(in.Dates)-1].Date
	umbrella, err := b.repos.Jobs.Create(ctx, domain.Job{
		Title:       in.Title,
		Description: in.Description,
		StartTime:   dayStart(first),
		EndTime:     dayEnd(last),
		Type:        domain.JobTypeTour,
		Color:       in.Color,
		TourID:      &tour.ID,
	})
	if err != nil {
		return domain.Tour{}, &domain.StoreError{Step: "create umbrella job", Err: err}
	}
	undo.push("delete umbrella job", func(ctx context.Context) error { return b.repos.Jobs.Delete(ctx, umbrella.ID) })

	if err := b.linkDepartments(ctx, umbrella.ID, in.Departments, undo); err != nil {
		return domain.Tour{}, &domain.StoreError{Step: "link umbrella job department", Err: err}
	}

	resolver := NewLocationResolver(b.repos.Locations, b.log)
	title := fmt.Sprintf(b.opts.DateTitleFormat, in.Title)

	for i, vd := range in.Dates {
		pos := i + 1

		locationID, err := resolver.Resolve(ctx, vd.Location)
		if err != nil {
			return domain.Tour{}, &domain.StoreError{Step: "resolve location", Position: pos, Err: err}
		}

		td, err := b.repos.Dates.Create(ctx, domain.TourDate{
			TourID:     tour.ID,
			Date:       dayStart(vd.Date),
			LocationID: locationID,
		})
		if err != nil {
			return domain.Tour{}, &domain.StoreError{Step: "create tour date", Position: pos, Err: err}
		}
		undo.push("delete tour date", func(ctx context.Context) error { return b.repos.Dates.Delete(ctx, td.ID) })

		job, err := b.repos.Jobs.Create(ctx, domain.Job{
			Title:       title,
			Description: in.Description,
			StartTime:   dayStart(vd.Date),
			EndTime:     dayEnd(vd.Date),
			Type:        domain.JobTypeSingle,
			Color:       in.Color,
			TourID:      &tour.ID,
			TourDateID:  &td.ID,
			LocationID:  locationID,
		})
		if err != nil {
			return domain.Tour{}, &domain.StoreError{Step: "create date job", Position: pos, Err: err}
		}
		undo.push("delete date job", func(ctx context.Context) error { return b.repos.Jobs.Delete(ctx, job.ID) })

		if err := b.linkDepartments(ctx, job.ID, in.Departments, undo); err != nil {
			return domain.Tour{}, &domain.StoreError{Step: "link date job department", Position: pos, Err: err}
		}
	}

	b.log.InfoContext(ctx, "tour graph written",
		"tour_id", tour.ID,
		"dates", len(in.Dates),
		"departments", len(in.Departments),
		"locations_created", resolver.Created(),
	)
	return tour, nil
}

func (b *GraphBuilder) linkDepartments(ctx context.Context, jobID uuid.UUID, depts []domain.Department, undo *undoLog) error {
	for _, d := range depts {
		d := d
		if err := b.repos.Departments.Add(ctx, jobID, d); err != nil {
			return err
		}
		undo.push("unlink department", func(ctx context.Context) error { return b.repos.Departments.Remove(ctx, jobID, d) })
	}
	return nil
}

// undoLog collects compensating actions for writes that succeeded.
type undoLog struct {
	steps []undoStep
}

type undoStep struct {
	name string
	fn   func(context.Context) error
}

func (u *undoLog) push(name string, fn func(context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

// unwind runs the recorded actions newest first. A record that is already
// gone counts as undone. Every action is attempted even after a failure.
func (u *undoLog) unwind(ctx context.Context, log *slog.Logger) error {
	var errs []error
	for i := len(u.steps) - 1; i >= 0; i-- {
		s := u.steps[i]
		if err := s.fn(ctx); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.ErrorContext(ctx, "rollback step failed", "step", s.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
