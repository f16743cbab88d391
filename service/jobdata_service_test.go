package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"jatrackr/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ownerID = "5f0c1c2e-8a41-4f4e-9a36-0d6a2b8c1f11"

func newTestJobDataService(t *testing.T) (*JobDataService, *memoryJobStore) {
	t.Helper()
	users := newMemoryUserStore()
	users.users[ownerID] = core.User{ID: ownerID, Username: "alice", Email: "alice@example.com"}
	jobs := newMemoryJobStore()

	svc := NewJobDataService(
		func() (JobDataStore, error) { return jobs, nil },
		newTestUserService(users, jobs),
		zap.NewNop().Sugar(),
	)
	return svc, jobs
}

func validJobInput() core.JobApplicationInput {
	return core.JobApplicationInput{
		UserID:   ownerID,
		Company:  " Initech ",
		Position: "Backend Engineer",
		URL:      "https://jobs.example.com/42",
	}
}

func TestJobDataService_Create_DefaultsStatus(t *testing.T) {
	svc, jobs := newTestJobDataService(t)

	job, err := svc.CreateJobApplication(context.Background(), validJobInput())

	require.NoError(t, err)
	assert.Equal(t, core.ApplicationStatusApplied, job.Status)
	assert.Equal(t, "Initech", job.Company)
	assert.NotEmpty(t, job.ID)
	assert.Contains(t, jobs.jobs, job.ID)
}

func TestJobDataService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *core.JobApplicationInput)
		message string
	}{
		{"unknown status", func(in *core.JobApplicationInput) { in.Status = "Ghosted" }, `unknown status "Ghosted"`},
		{"missing company", func(in *core.JobApplicationInput) { in.Company = "" }, "company is required"},
		{"bad url", func(in *core.JobApplicationInput) { in.URL = "not a url" }, "url must be a valid url"},
		{"bad owner id", func(in *core.JobApplicationInput) { in.UserID = "alice" }, "userId must be a valid uuid"},
		{"unknown owner", func(in *core.JobApplicationInput) { in.UserID = "0b5c4f0e-1111-4a4a-8b8b-222233334444" }, "does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, jobs := newTestJobDataService(t)
			in := validJobInput()
			tt.mutate(&in)

			_, err := svc.CreateJobApplication(context.Background(), in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrValidation))
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, jobs.jobs)
		})
	}
}

func TestJobDataService_UpdateAndList(t *testing.T) {
	svc, _ := newTestJobDataService(t)
	ctx := context.Background()

	created, err := svc.CreateJobApplication(ctx, validJobInput())
	require.NoError(t, err)

	in := validJobInput()
	in.Status = core.ApplicationStatusInterviewing
	applied := time.Date(2024, 5, 1, 9, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	in.AppliedOn = &applied

	updated, err := svc.UpdateJobApplication(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, core.ApplicationStatusInterviewing, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.AppliedOn)
	assert.Equal(t, time.UTC, updated.AppliedOn.Location())

	owned, err := svc.ListJobApplicationsForUser(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, created.ID, owned[0].ID)

	all, err := svc.ListJobApplications(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.UpdateJobApplication(ctx, "missing", in)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestJobDataService_ListForUnknownUser(t *testing.T) {
	svc, _ := newTestJobDataService(t)

	_, err := svc.ListJobApplicationsForUser(context.Background(), "nobody")

	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestJobDataService_GetAndDelete(t *testing.T) {
	svc, jobs := newTestJobDataService(t)
	ctx := context.Background()

	created, err := svc.CreateJobApplication(ctx, validJobInput())
	require.NoError(t, err)

	got, err := svc.GetJobApplication(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Position, got.Position)

	require.NoError(t, svc.DeleteJobApplication(ctx, created.ID))
	assert.Empty(t, jobs.jobs)

	err = svc.DeleteJobApplication(ctx, created.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = svc.GetJobApplication(ctx, "")
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestJobDataService_StoreUnavailable(t *testing.T) {
	unavailable := errors.New("storage unavailable")
	users := newMemoryUserStore()
	users.users[ownerID] = core.User{ID: ownerID}
	svc := NewJobDataService(
		func() (JobDataStore, error) { return nil, unavailable },
		newTestUserService(users, nil),
		zap.NewNop().Sugar(),
	)

	_, err := svc.ListJobApplications(context.Background())
	assert.Equal(t, unavailable, err)

	_, err = svc.CreateJobApplication(context.Background(), validJobInput())
	assert.Equal(t, unavailable, err)
}
