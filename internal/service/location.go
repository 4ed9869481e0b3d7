package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/crewdesk/console/internal/domain"
	"github.com/crewdesk/console/internal/repo"
)

// LocationResolver maps venue names to location IDs, creating locations
// that do not exist yet. A resolver remembers every name it has resolved, so
// one resolver should be used per provisioning run.
type LocationResolver struct {
	locations repo.LocationRepo
	log       *slog.Logger
	seen      map[string]uuid.UUID
	created   int
}

// NewLocationResolver constructs a LocationResolver with an empty memo.
func NewLocationResolver(locations repo.LocationRepo, log *slog.Logger) *LocationResolver {
	if log == nil {
		log = slog.Default()
	}
	return &LocationResolver{locations: locations, log: log, seen: make(map[string]uuid.UUID)}
}

// Resolve returns the ID of the location named name.
// A blank name resolves to nil with no error: the caller records no location.
// An existing location is returned untouched; a missing one is inserted with
// an insert-if-absent write, so a concurrent run creating the same name ends
// up sharing the row instead of duplicating it.
func (r *LocationResolver) Resolve(ctx context.Context, name string) (*uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if id, ok := r.seen[name]; ok {
		return &id, nil
	}

	loc, err := r.locations.FindByName(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		var created bool
		loc, created, err = r.locations.Upsert(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("service.LocationResolver.Resolve: %w", err)
		}
		if created {
			r.created++
			r.log.DebugContext(ctx, "location created", "location_id", loc.ID, "name", name)
		}
	default:
		return nil, fmt.Errorf("service.LocationResolver.Resolve: %w", err)
	}

	r.seen[name] = loc.ID
	id := loc.ID
	return &id, nil
}

// Created returns how many locations this resolver inserted.
func (r *LocationResolver) Created() int {
	return r.created
}
