package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/crewdesk/console/internal/domain"
)

// ProvisioningRunRepo guards idempotency keys. A run claims its key before
// building, then either completes the claim with the tour it created or
// releases it on failure.
type ProvisioningRunRepo interface {
	// Claim takes key for the caller. claimed is true when the key was free,
	// or held by a pending claim taken before staleBefore (an abandoned run).
	// Otherwise claimed is false and run is the current holder.
	Claim(ctx context.Context, key string, staleBefore time.Time) (claimed bool, run domain.ProvisioningRun, err error)

	// Get returns the run recorded under key.
	// Returns domain.ErrNotFound if the key has not been used.
	Get(ctx context.Context, key string) (domain.ProvisioningRun, error)

	// Complete records tourID on the pending claim for key.
	// Returns domain.ErrNotFound if key holds no pending claim.
	Complete(ctx context.Context, key string, tourID uuid.UUID) error

	// Release drops the pending claim for key so a later submission can retry.
	// Releasing a completed or missing key is a no-op.
	Release(ctx context.Context, key string) error
}

type pgProvisioningRunRepo struct {
	db db
}

// NewProvisioningRunRepo constructs a ProvisioningRunRepo backed by the provided db connection.
func NewProvisioningRunRepo(db db) ProvisioningRunRepo {
	return &pgProvisioningRunRepo{db: db}
}

// claimAttempts bounds the retries when the holder releases its claim
// between our insert and our read.
const claimAttempts = 3

func (r *pgProvisioningRunRepo) Claim(ctx context.Context, key string, staleBefore time.Time) (bool, domain.ProvisioningRun, error) {
	// The conditional DO UPDATE takes over an abandoned pending claim; a live
	// or completed row makes the statement return nothing.
	const q = `
		INSERT INTO provisioning_runs (idempotency_key)
		VALUES (@key)
		ON CONFLICT (idempotency_key) DO UPDATE
			SET claimed_at = now()
			WHERE provisioning_runs.tour_id IS NULL
			  AND provisioning_runs.claimed_at < @stale_before
		RETURNING idempotency_key, tour_id, claimed_at`

	for i := 0; i < claimAttempts; i++ {
		run, err := scanProvisioningRun(r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key, "stale_before": staleBefore}))
		if err == nil {
			return true, run, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return false, domain.ProvisioningRun{}, fmt.Errorf("repo.ProvisioningRunRepo.Claim: %w", err)
		}

		held, err := r.Get(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, domain.ProvisioningRun{}, fmt.Errorf("repo.ProvisioningRunRepo.Claim: %w", err)
		}
		return false, held, nil
	}
	return false, domain.ProvisioningRun{}, fmt.Errorf("repo.ProvisioningRunRepo.Claim: key %q kept changing hands", key)
}

func (r *pgProvisioningRunRepo) Get(ctx context.Context, key string) (domain.ProvisioningRun, error) {
	const q = `
		SELECT idempotency_key, tour_id, claimed_at
		FROM provisioning_runs
		WHERE idempotency_key = @key`

	run, err := scanProvisioningRun(r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}))
	if err != nil {
		return domain.ProvisioningRun{}, fmt.Errorf("repo.ProvisioningRunRepo.Get: %w", err)
	}
	return run, nil
}

func (r *pgProvisioningRunRepo) Complete(ctx context.Context, key string, tourID uuid.UUID) error {
	const q = `
		UPDATE provisioning_runs
		SET tour_id = @tour_id
		WHERE idempotency_key = @key AND tour_id IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"key": key, "tour_id": tourID})
	if err != nil {
		return fmt.Errorf("repo.ProvisioningRunRepo.Complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ProvisioningRunRepo.Complete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgProvisioningRunRepo) Release(ctx context.Context, key string) error {
	const q = `DELETE FROM provisioning_runs WHERE idempotency_key = @key AND tour_id IS NULL`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"key": key}); err != nil {
		return fmt.Errorf("repo.ProvisioningRunRepo.Release: %w", err)
	}
	return nil
}

func scanProvisioningRun(row scanner) (domain.ProvisioningRun, error) {
	var (
		run    domain.ProvisioningRun
		tourID pgtype.UUID
	)
	if err := row.Scan(&run.IdempotencyKey, &tourID, &run.ClaimedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProvisioningRun{}, domain.ErrNotFound
		}
		return domain.ProvisioningRun{}, err
	}
	run.TourID = uuidPtr(tourID)
	return run, nil
}
