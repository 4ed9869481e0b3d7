package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/console/internal/domain"
)

func umbrellaFixture(tour domain.Tour) domain.Job {
	return domain.Job{
		Title:     tour.Name,
		StartTime: day(2024, 7, 8),
		EndTime:   day(2024, 7, 10).Add(24*time.Hour - time.Second),
		Type:      domain.JobTypeTour,
		Color:     tour.Color,
		TourID:    &tour.ID,
	}
}

func TestJobRepo_Create(t *testing.T) {
	r := newTestRepos(t)
	tour := mustCreateTour(t, r.tours)
	input := umbrellaFixture(tour)

	got, err := r.jobs.Create(context.Background(), input)

	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, got.ID)
	assert.Equal(t, domain.JobTypeTour, got.Type)
	assert.True(t, got.StartTime.Equal(input.StartTime))
	assert.True(t, got.EndTime.Equal(input.EndTime))
	require.NotNil(t, got.TourID)
	assert.Equal(t, tour.ID, *got.TourID)
	assert.Nil(t, got.TourDateID)
	assert.Empty(t, got.Departments)
}

func TestJobRepo_Create_RejectsInvertedSpan(t *testing.T) {
	r := newTestRepos(t)
	tour := mustCreateTour(t, r.tours)
	input := umbrellaFixture(tour)
	input.EndTime = input.StartTime.Add(-time.Hour)

	_, err := r.jobs.Create(context.Background(), input)

	assert.Error(t, err)
}

func TestJobRepo_ListByTour_IncludesDepartments(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	tour := mustCreateTour(t, r.tours)
	job, err := r.jobs.Create(ctx, umbrellaFixture(tour))
	require.NoError(t, err)
	require.NoError(t, r.depts.Add(ctx, job.ID, domain.DepartmentSound))
	require.NoError(t, r.depts.Add(ctx, job.ID, domain.DepartmentLights))
	// Adding an existing link is a no-op.
	require.NoError(t, r.depts.Add(ctx, job.ID, domain.DepartmentSound))

	jobs, err := r.jobs.ListByTour(ctx, tour.ID)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, []domain.Department{domain.DepartmentLights, domain.DepartmentSound}, jobs[0].Departments)
}

func TestJobRepo_Delete_CascadesDepartments(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	tour := mustCreateTour(t, r.tours)
	job, err := r.jobs.Create(ctx, umbrellaFixture(tour))
	require.NoError(t, err)
	require.NoError(t, r.depts.Add(ctx, job.ID, domain.DepartmentVideo))

	require.NoError(t, r.jobs.Delete(ctx, job.ID))

	err = r.depts.Remove(ctx, job.ID, domain.DepartmentVideo)
	assert.ErrorIs(t, err, domain.ErrNotFound, "link should be gone with its job")
}

func TestJobDepartmentRepo_Remove_NotFound(t *testing.T) {
	r := newTestRepos(t)

	err := r.depts.Remove(context.Background(), missingID, domain.DepartmentSound)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
