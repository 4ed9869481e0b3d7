package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crewdesk/console/internal/domain"
)

// JobDepartmentRepo defines the persistence operations for the
// job_departments join table.
type JobDepartmentRepo interface {
	// Add links a department to a job. Linking twice is not an error.
	Add(ctx context.Context, jobID uuid.UUID, dept domain.Department) error

	// Remove unlinks a department from a job.
	// Returns domain.ErrNotFound if the link does not exist.
	Remove(ctx context.Context, jobID uuid.UUID, dept domain.Department) error
}

type pgJobDepartmentRepo struct {
	db db
}

// NewJobDepartmentRepo constructs a JobDepartmentRepo backed by the provided db connection.
func NewJobDepartmentRepo(db db) JobDepartmentRepo {
	return &pgJobDepartmentRepo{db: db}
}

// Add is idempotent via ON CONFLICT DO NOTHING on the (job_id, department) key.
func (r *pgJobDepartmentRepo) Add(ctx context.Context, jobID uuid.UUID, dept domain.Department) error {
	const q = `
		INSERT INTO job_departments (job_id, department)
		VALUES (@job_id, @department)
		ON CONFLICT (job_id, department) DO NOTHING`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"job_id": jobID, "department": string(dept)})
	if err != nil {
		return fmt.Errorf("repo.JobDepartmentRepo.Add: %w", err)
	}
	return nil
}

func (r *pgJobDepartmentRepo) Remove(ctx context.Context, jobID uuid.UUID, dept domain.Department) error {
	const q = `
		DELETE FROM job_departments
		WHERE job_id = @job_id AND department = @department`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"job_id": jobID, "department": string(dept)})
	if err != nil {
		return fmt.Errorf("repo.JobDepartmentRepo.Remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.JobDepartmentRepo.Remove: %w", domain.ErrNotFound)
	}
	return nil
}
