package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/crewdesk/console/internal/domain"
)

// LocationRepo defines the persistence operations for Locations.
// Locations are shared by name across all tours.
type LocationRepo interface {
	// FindByName returns the location whose name matches exactly.
	// Returns domain.ErrNotFound if there is none.
	FindByName(ctx context.Context, name string) (domain.Location, error)

	// Upsert inserts a location by name, or returns the existing row if the
	// name is already taken. created reports whether this call inserted it.
	Upsert(ctx context.Context, name string) (loc domain.Location, created bool, err error)

	// ListPaged returns one page of locations ordered by name and the total count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Location, int64, error)
}

type pgLocationRepo struct {
	db db
}

// NewLocationRepo constructs a LocationRepo backed by the provided db connection.
func NewLocationRepo(db db) LocationRepo {
	return &pgLocationRepo{db: db}
}

func (r *pgLocationRepo) FindByName(ctx context.Context, name string) (domain.Location, error) {
	const q = `SELECT id, name, created_at FROM locations WHERE name = @name`

	result, err := scanLocation(r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name}))
	if err != nil {
		return domain.Location{}, fmt.Errorf("repo.LocationRepo.FindByName: %w", err)
	}
	return result, nil
}

// Upsert relies on the unique name constraint so two concurrent resolutions
// of the same new name converge on one row. The no-op DO UPDATE makes
// RETURNING fire on conflict; xmax is zero only for a freshly inserted tuple.
func (r *pgLocationRepo) Upsert(ctx context.Context, name string) (domain.Location, bool, error) {
	const q = `
		INSERT INTO locations (name)
		VALUES (@name)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at, (xmax = 0) AS inserted`

	var (
		loc      domain.Location
		id       pgtype.UUID
		inserted bool
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name}).Scan(&id, &loc.Name, &loc.CreatedAt, &inserted)
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("repo.LocationRepo.Upsert: %w", err)
	}
	loc.ID = uuid.UUID(id.Bytes)
	return loc, inserted, nil
}

func (r *pgLocationRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Location, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM locations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.LocationRepo.ListPaged: count: %w", err)
	}

	const q = `
		SELECT id, name, created_at
		FROM locations
		ORDER BY name
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.LocationRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	locations := []domain.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.LocationRepo.ListPaged: scan: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.LocationRepo.ListPaged: rows: %w", err)
	}
	return locations, total, nil
}

func scanLocation(s scanner) (domain.Location, error) {
	var (
		loc domain.Location
		id  pgtype.UUID
	)
	if err := s.Scan(&id, &loc.Name, &loc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Location{}, domain.ErrNotFound
		}
		return domain.Location{}, err
	}
	loc.ID = uuid.UUID(id.Bytes)
	return loc, nil
}
