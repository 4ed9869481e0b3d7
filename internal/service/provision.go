package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crewdesk/console/internal/domain"
	"github.com/crewdesk/console/internal/metrics"
	"github.com/crewdesk/console/internal/repo"
)

// View cache keys refreshed after a tour is provisioned.
const (
	CacheKeyJobs  = "jobs"
	CacheKeyTours = "tours"
)

// Invalidator evicts cached views so the next read refetches them.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Notifier delivers a user-facing outcome message.
type Notifier interface {
	Notify(ctx context.Context, kind domain.NotificationKind, message string)
}

// TourGraphBuilder writes a validated tour. *GraphBuilder implements it.
type TourGraphBuilder interface {
	Build(ctx context.Context, in BuildInput) (domain.Tour, error)
}

// ProvisionService is the entry point for turning a tour form into a
// persisted tour graph.
type ProvisionService struct {
	builder  TourGraphBuilder
	tours    repo.TourRepo
	runs     repo.ProvisioningRunRepo
	cache    Invalidator
	notifier Notifier
	loc      *time.Location
	validate *validator.Validate
	log      *slog.Logger

	claimWait time.Duration
	claimPoll time.Duration
	claimTTL  time.Duration
}

// Defaults for the idempotency claim settings of ProvisionDeps.
const (
	DefaultClaimWait = 5 * time.Second
	DefaultClaimPoll = 100 * time.Millisecond
	DefaultClaimTTL  = 10 * time.Minute
)

// ProvisionDeps groups the collaborators of ProvisionService.
// Location is the time zone tour dates are interpreted in; nil means UTC.
//
// ClaimWait bounds how long a submission waits for another in-flight
// submission with the same idempotency key, polling every ClaimPoll. A
// pending claim older than ClaimTTL is treated as abandoned and taken over.
// Zero durations select the Default values.
type ProvisionDeps struct {
	Builder  TourGraphBuilder
	Tours    repo.TourRepo
	Runs     repo.ProvisioningRunRepo
	Cache    Invalidator
	Notifier Notifier
	Location *time.Location
	Logger   *slog.Logger

	ClaimWait time.Duration
	ClaimPoll time.Duration
	ClaimTTL  time.Duration
}

// NewProvisionService constructs a ProvisionService.
func NewProvisionService(d ProvisionDeps) *ProvisionService {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.ClaimWait <= 0 {
		d.ClaimWait = DefaultClaimWait
	}
	if d.ClaimPoll <= 0 {
		d.ClaimPoll = DefaultClaimPoll
	}
	if d.ClaimTTL <= 0 {
		d.ClaimTTL = DefaultClaimTTL
	}
	return &ProvisionService{
		builder:  d.Builder,
		tours:    d.Tours,
		runs:     d.Runs,
		cache:    d.Cache,
		notifier: d.Notifier,
		loc:      d.Location,
		validate: newValidator(),
		log:      d.Logger,

		claimWait: d.ClaimWait,
		claimPoll: d.ClaimPoll,
		claimTTL:  d.ClaimTTL,
	}
}

// ProvisionTour validates form and writes the tour it describes.
//
// Validation failures return domain.ErrValidation before anything is written.
// Store failures return a *domain.StoreError. Either way a failure
// notification is sent and form is left untouched so it can be resubmitted.
// On success the jobs and tours views are invalidated, a success notification
// is sent and form is reset.
//
// If form carries an idempotency key, the key is claimed before anything is
// written. A key that already produced a tour returns that tour without
// writing. A key held by a submission still in flight is waited on for up to
// ClaimWait, after which domain.ErrConflict is returned. A failed build
// releases the key so the form can be resubmitted with it.
func (s *ProvisionService) ProvisionTour(ctx context.Context, form *domain.TourForm) (domain.Tour, error) {
	if form == nil {
		return domain.Tour{}, fmt.Errorf("service.ProvisionService.ProvisionTour: %w: form is required", domain.ErrValidation)
	}

	in, err := s.prepare(form)
	if err != nil {
		metrics.RecordProvision(metrics.ProvisionInvalid)
		return domain.Tour{}, s.fail(ctx, form, err)
	}

	key := strings.TrimSpace(form.IdempotencyKey)
	if key != "" {
		tour, replayed, err := s.claim(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				metrics.RecordProvision(metrics.ProvisionConflict)
			} else {
				metrics.RecordProvision(metrics.ProvisionFailed)
			}
			return domain.Tour{}, s.fail(ctx, form, err)
		}
		if replayed {
			metrics.RecordProvision(metrics.ProvisionReplayed)
			s.log.InfoContext(ctx, "tour provisioning replayed", "tour_id", tour.ID, "idempotency_key", key)
			s.notifier.Notify(ctx, domain.NotificationSuccess,
				fmt.Sprintf("Tour %q was already provisioned", tour.Name))
			form.Reset()
			return tour, nil
		}
	}

	tour, err := s.builder.Build(ctx, in)
	if err != nil {
		if key != "" {
			if relErr := s.runs.Release(ctx, key); relErr != nil {
				s.log.WarnContext(ctx, "failed to release idempotency key",
					"idempotency_key", key, "error", relErr)
			}
		}
		metrics.RecordProvision(metrics.ProvisionFailed)
		return domain.Tour{}, s.fail(ctx, form, err)
	}

	if key != "" {
		// ErrNotFound here means our claim went stale and was taken over.
		if err := s.runs.Complete(ctx, key, tour.ID); err != nil {
			s.log.WarnContext(ctx, "failed to record provisioning run",
				"tour_id", tour.ID, "idempotency_key", key, "error", err)
		}
	}

	metrics.RecordProvision(metrics.ProvisionSucceeded)
	s.succeed(ctx, form, tour, len(in.Dates))
	return tour, nil
}

// prepare checks the form and converts it into a BuildInput.
func (s *ProvisionService) prepare(form *domain.TourForm) (BuildInput, error) {
	title := strings.TrimSpace(form.Title)
	if title == "" {
		return BuildInput{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	if err := s.validate.Struct(form); err != nil {
		return BuildInput{}, validationError(err)
	}

	dates, err := NormalizeDates(form.Dates, s.loc)
	if err != nil {
		return BuildInput{}, err
	}

	return BuildInput{
		Title:       title,
		Description: strings.TrimSpace(form.Description),
		Color:       strings.TrimSpace(form.Color),
		Departments: uniqueDepartments(form.Departments),
		Dates:       dates,
	}, nil
}

// claim takes key for this submission. replayed is true when key already
// produced a tour, which is returned. While another submission holds key,
// claim polls until it completes, releases or the wait runs out.
func (s *ProvisionService) claim(ctx context.Context, key string) (domain.Tour, bool, error) {
	deadline := time.Now().Add(s.claimWait)
	for {
		claimed, run, err := s.runs.Claim(ctx, key, time.Now().Add(-s.claimTTL))
		if err != nil {
			return domain.Tour{}, false, &domain.StoreError{Step: "claim idempotency key", Err: err}
		}
		if claimed {
			return domain.Tour{}, false, nil
		}
		if !run.Pending() {
			tour, err := s.tours.GetByID(ctx, *run.TourID)
			if err != nil {
				return domain.Tour{}, false, &domain.StoreError{Step: "load provisioned tour", Err: err}
			}
			return tour, true, nil
		}

		if !time.Now().Before(deadline) {
			return domain.Tour{}, false, fmt.Errorf(
				"%w: a submission with idempotency key %q is still in progress", domain.ErrConflict, key)
		}
		timer := time.NewTimer(s.claimPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Tour{}, false, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *ProvisionService) succeed(ctx context.Context, form *domain.TourForm, tour domain.Tour, dates int) {
	if err := s.cache.Invalidate(ctx, CacheKeyJobs, CacheKeyTours); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate views", "tour_id", tour.ID, "error", err)
	}
	s.notifier.Notify(ctx, domain.NotificationSuccess,
		fmt.Sprintf("Tour %q created with %d dates", tour.Name, dates))
	form.Reset()
	s.log.InfoContext(ctx, "tour provisioned", "tour_id", tour.ID, "dates", dates)
}

func (s *ProvisionService) fail(ctx context.Context, form *domain.TourForm, err error) error {
	err = fmt.Errorf("service.ProvisionService.ProvisionTour: %w", err)
	s.notifier.Notify(ctx, domain.NotificationError, domain.UserMessage(err))

	level := slog.LevelError
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict) {
		level = slog.LevelInfo
	}
	s.log.Log(ctx, level, "tour provisioning failed", "title", form.Title, "error", err)
	return err
}

// uniqueDepartments drops repeated departments, keeping first-seen order.
func uniqueDepartments(in []domain.Department) []domain.Department {
	out := make([]domain.Department, 0, len(in))
	seen := make(map[domain.Department]bool, len(in))
	for _, d := range in {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// newValidator returns a validator that also understands the "department" tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return domain.Department(fl.Field().String()).Valid()
	})
	return v
}

func departmentNames() string {
	names := make([]string, len(domain.Departments))
	for i, d := range domain.Departments {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

// validationError turns validator field errors into one domain.ErrValidation.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "hexcolor":
			msgs = append(msgs, field+" must be a hex color")
		case "department":
			msgs = append(msgs, field+" must be one of "+departmentNames())
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}
