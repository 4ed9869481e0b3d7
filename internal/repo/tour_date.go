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

// TourDateRepo defines the persistence operations for TourDates.
type TourDateRepo interface {
	// Create inserts a tour date. LocationID may be nil.
	Create(ctx context.Context, td domain.TourDate) (domain.TourDate, error)

	// ListByTour returns the dates of a tour ordered by date ascending.
	ListByTour(ctx context.Context, tourID uuid.UUID) ([]domain.TourDate, error)

	// Delete removes a tour date by ID. The per-date job cascades.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgTourDateRepo struct {
	db db
}

// NewTourDateRepo constructs a TourDateRepo backed by the provided db connection.
func NewTourDateRepo(db db) TourDateRepo {
	return &pgTourDateRepo{db: db}
}

func (r *pgTourDateRepo) Create(ctx context.Context, td domain.TourDate) (domain.TourDate, error) {
	const q = `
		INSERT INTO tour_dates (tour_id, date, location_id)
		VALUES (@tour_id, @date, @location_id)
		RETURNING id, tour_id, date, location_id, created_at`

	args := pgx.NamedArgs{
		"tour_id":     td.TourID,
		"date":        pgtype.Date{Time: td.Date, Valid: true},
		"location_id": td.LocationID, // nil becomes NULL
	}

	result, err := scanTourDate(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TourDate{}, fmt.Errorf("repo.TourDateRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTourDateRepo) ListByTour(ctx context.Context, tourID uuid.UUID) ([]domain.TourDate, error) {
	const q = `
		SELECT id, tour_id, date, location_id, created_at
		FROM tour_dates
		WHERE tour_id = @tour_id
		ORDER BY date, created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tour_id": tourID})
	if err != nil {
		return nil, fmt.Errorf("repo.TourDateRepo.ListByTour: %w", err)
	}
	defer rows.Close()

	dates := []domain.TourDate{}
	for rows.Next() {
		td, err := scanTourDate(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TourDateRepo.ListByTour: scan: %w", err)
		}
		dates = append(dates, td)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TourDateRepo.ListByTour: rows: %w", err)
	}
	return dates, nil
}

func (r *pgTourDateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tour_dates WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TourDateRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TourDateRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanTourDate(s scanner) (domain.TourDate, error) {
	var (
		td       domain.TourDate
		id       pgtype.UUID
		tourID   pgtype.UUID
		date     pgtype.Date
		location pgtype.UUID
	)
	err := s.Scan(&id, &tourID, &date, &location, &td.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TourDate{}, domain.ErrNotFound
		}
		return domain.TourDate{}, err
	}
	td.ID = uuid.UUID(id.Bytes)
	td.TourID = uuid.UUID(tourID.Bytes)
	td.Date = date.Time
	td.LocationID = uuidPtr(location)
	return td, nil
}
