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

// TourRepo defines the persistence operations for Tours.
type TourRepo interface {
	// Create inserts a new tour and returns the persisted record.
	Create(ctx context.Context, tour domain.Tour) (domain.Tour, error)

	// GetByID retrieves a tour by primary key.
	// Returns domain.ErrNotFound if no tour with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Tour, error)

	// List returns all tours, newest first.
	List(ctx context.Context) ([]domain.Tour, error)

	// Delete removes a tour by ID. Dates and jobs cascade.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgTourRepo struct {
	db db
}

// NewTourRepo constructs a TourRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTourRepo(db db) TourRepo {
	return &pgTourRepo{db: db}
}

func (r *pgTourRepo) Create(ctx context.Context, tour domain.Tour) (domain.Tour, error) {
	const q = `
		INSERT INTO tours (name, description, color)
		VALUES (@name, @description, @color)
		RETURNING id, name, description, color, created_at, updated_at`

	args := pgx.NamedArgs{
		"name":        tour.Name,
		"description": tour.Description,
		"color":       tour.Color,
	}

	result, err := scanTour(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Tour{}, fmt.Errorf("repo.TourRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTourRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Tour, error) {
	const q = `
		SELECT id, name, description, color, created_at, updated_at
		FROM tours
		WHERE id = @id`

	result, err := scanTour(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Tour{}, fmt.Errorf("repo.TourRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTourRepo) List(ctx context.Context) ([]domain.Tour, error) {
	const q = `
		SELECT id, name, description, color, created_at, updated_at
		FROM tours
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TourRepo.List: %w", err)
	}
	defer rows.Close()

	tours := []domain.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TourRepo.List: scan: %w", err)
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TourRepo.List: rows: %w", err)
	}
	return tours, nil
}

func (r *pgTourRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM tours WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TourRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TourRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanTour(s scanner) (domain.Tour, error) {
	var (
		t  domain.Tour
		id pgtype.UUID
	)
	err := s.Scan(&id, &t.Name, &t.Description, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tour{}, domain.ErrNotFound
		}
		return domain.Tour{}, err
	}
	t.ID = uuid.UUID(id.Bytes)
	return t, nil
}
