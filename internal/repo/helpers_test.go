package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crewdesk/console/internal/domain"
	"github.com/crewdesk/console/internal/repo"
	"github.com/crewdesk/console/testutil"
)

// repos bundles every repository over one transaction so a test can build a
// full tour graph that is rolled back when the test finishes.
type repos struct {
	tours     repo.TourRepo
	dates     repo.TourDateRepo
	jobs      repo.JobRepo
	depts     repo.JobDepartmentRepo
	locations repo.LocationRepo
	runs      repo.ProvisioningRunRepo
}

func newTestRepos(t *testing.T) repos {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repos{
		tours:     repo.NewTourRepo(tx),
		dates:     repo.NewTourDateRepo(tx),
		jobs:      repo.NewJobRepo(tx),
		depts:     repo.NewJobDepartmentRepo(tx),
		locations: repo.NewLocationRepo(tx),
		runs:      repo.NewProvisioningRunRepo(tx),
	}
}

func mustCreateTour(t *testing.T, r repo.TourRepo) domain.Tour {
	t.Helper()
	tour, err := r.Create(context.Background(), domain.Tour{
		Name:        "Summer Run",
		Description: "Festival season",
		Color:       "#ff8800",
	})
	require.NoError(t, err, "create parent tour")
	return tour
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// missingID is a UUID that is never inserted by any test.
var missingID = [16]byte{0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef,
	0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef}
