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

// JobRepo defines the persistence operations for Jobs.
type JobRepo interface {
	// Create inserts a job. Departments on the input are ignored; links are
	// written separately through JobDepartmentRepo.
	Create(ctx context.Context, job domain.Job) (domain.Job, error)

	// List returns all jobs ordered by start time, each with its departments.
	List(ctx context.Context) ([]domain.Job, error)

	// ListByTour returns the jobs belonging to a tour ordered by start time,
	// umbrella job first on ties.
	ListByTour(ctx context.Context, tourID uuid.UUID) ([]domain.Job, error)

	// Delete removes a job by ID. Department links cascade.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgJobRepo struct {
	db db
}

// NewJobRepo constructs a JobRepo backed by the provided db connection.
func NewJobRepo(db db) JobRepo {
	return &pgJobRepo{db: db}
}

// jobColumns is shared by every SELECT so scanJob sees a fixed column order.
// The departments aggregate yields an empty array for jobs with no links.
const jobColumns = `
	j.id, j.title, j.description, j.start_time, j.end_time, j.job_type, j.color,
	j.tour_id, j.tour_date_id, j.location_id, j.created_at,
	COALESCE(
		(SELECT array_agg(jd.department ORDER BY jd.department)
		 FROM job_departments jd WHERE jd.job_id = j.id),
		'{}'
	)`

func (r *pgJobRepo) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	const q = `
		WITH j AS (
			INSERT INTO jobs (title, description, start_time, end_time, job_type, color,
			                  tour_id, tour_date_id, location_id)
			VALUES (@title, @description, @start_time, @end_time, @job_type, @color,
			        @tour_id, @tour_date_id, @location_id)
			RETURNING *
		)
		SELECT j.id, j.title, j.description, j.start_time, j.end_time, j.job_type, j.color,
		       j.tour_id, j.tour_date_id, j.location_id, j.created_at, '{}'::text[]
		FROM j`

	args := pgx.NamedArgs{
		"title":        job.Title,
		"description":  job.Description,
		"start_time":   job.StartTime,
		"end_time":     job.EndTime,
		"job_type":     string(job.Type),
		"color":        job.Color,
		"tour_id":      job.TourID,
		"tour_date_id": job.TourDateID,
		"location_id":  job.LocationID,
	}

	result, err := scanJob(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Job{}, fmt.Errorf("repo.JobRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgJobRepo) List(ctx context.Context) ([]domain.Job, error) {
	q := `SELECT ` + jobColumns + `
		FROM jobs j
		ORDER BY j.start_time, j.job_type DESC, j.created_at`

	jobs, err := r.queryJobs(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("repo.JobRepo.List: %w", err)
	}
	return jobs, nil
}

func (r *pgJobRepo) ListByTour(ctx context.Context, tourID uuid.UUID) ([]domain.Job, error) {
	q := `SELECT ` + jobColumns + `
		FROM jobs j
		WHERE j.tour_id = @tour_id
		ORDER BY j.start_time, j.job_type DESC, j.created_at`

	jobs, err := r.queryJobs(ctx, q, pgx.NamedArgs{"tour_id": tourID})
	if err != nil {
		return nil, fmt.Errorf("repo.JobRepo.ListByTour: %w", err)
	}
	return jobs, nil
}

func (r *pgJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.JobRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.JobRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgJobRepo) queryJobs(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Job, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return jobs, nil
}

func scanJob(s scanner) (domain.Job, error) {
	var (
		j           domain.Job
		id          pgtype.UUID
		jobType     string
		tourID      pgtype.UUID
		tourDateID  pgtype.UUID
		locationID  pgtype.UUID
		departments []string
	)
	err := s.Scan(&id, &j.Title, &j.Description, &j.StartTime, &j.EndTime, &jobType, &j.Color,
		&tourID, &tourDateID, &locationID, &j.CreatedAt, &departments)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, domain.ErrNotFound
		}
		return domain.Job{}, err
	}
	j.ID = uuid.UUID(id.Bytes)
	j.Type = domain.JobType(jobType)
	j.TourID = uuidPtr(tourID)
	j.TourDateID = uuidPtr(tourDateID)
	j.LocationID = uuidPtr(locationID)
	j.Departments = make([]domain.Department, len(departments))
	for i, d := range departments {
		j.Departments[i] = domain.Department(d)
	}
	return j, nil
}
