package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jatrackr/core"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobDataStore defines job application storage operations needed by the service
type JobDataStore interface {
	ListJobApplications(ctx context.Context) ([]core.JobApplication, error)
	ListJobApplicationsForUser(ctx context.Context, userID string) ([]core.JobApplication, error)
	GetJobApplication(ctx context.Context, id string) (*core.JobApplication, error)
	CreateJobApplication(ctx context.Context, job *core.JobApplication) error
	UpdateJobApplication(ctx context.Context, job *core.JobApplication) error
	DeleteJobApplication(ctx context.Context, id string) error
}

// UserLookup checks that the owner of a job application exists
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*core.User, error)
}

// JobDataStoreProvider resolves the job data store on demand
type JobDataStoreProvider func() (JobDataStore, error)

// JobDataService implements job application tracking for users
type JobDataService struct {
	store    JobDataStoreProvider
	users    UserLookup
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

// NewJobDataService creates a new JobDataService
func NewJobDataService(store JobDataStoreProvider, users UserLookup, logger *zap.SugaredLogger) *JobDataService {
	if store == nil {
		panic("store is required")
	}
	if users == nil {
		panic("users is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &JobDataService{
		store:    store,
		users:    users,
		validate: newValidator(),
		logger:   logger,
	}
}

// ListJobApplications returns every job application, newest first
func (s *JobDataService) ListJobApplications(ctx context.Context) ([]core.JobApplication, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.ListJobApplications(ctx)
}

// ListJobApplicationsForUser returns a user's job applications. Unknown users
// yield core.ErrNotFound rather than an empty list.
func (s *JobDataService) ListJobApplicationsForUser(ctx context.Context, userID string) ([]core.JobApplication, error) {
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.ListJobApplicationsForUser(ctx, userID)
}

// GetJobApplication returns a job application by id
func (s *JobDataService) GetJobApplication(ctx context.Context, id string) (*core.JobApplication, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.GetJobApplication(ctx, id)
}

// CreateJobApplication validates input, checks the owner and stores a new application
func (s *JobDataService) CreateJobApplication(ctx context.Context, input core.JobApplicationInput) (*core.JobApplication, error) {
	status, err := s.validateInput(ctx, input)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &core.JobApplication{
		ID:        uuid.New().String(),
		CreatedAt: now,
	}
	applyInput(job, input, status, now)

	store, err := s.store()
	if err != nil {
		return nil, err
	}
	if err := store.CreateJobApplication(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Infow("Job application created",
		"job_id", job.ID,
		"user_id", job.UserID,
		"status", job.Status)
	return job, nil
}

// UpdateJobApplication replaces an existing application's fields
func (s *JobDataService) UpdateJobApplication(ctx context.Context, id string, input core.JobApplicationInput) (*core.JobApplication, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	status, err := s.validateInput(ctx, input)
	if err != nil {
		return nil, err
	}

	store, err := s.store()
	if err != nil {
		return nil, err
	}
	existing, err := store.GetJobApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	applyInput(&updated, input, status, time.Now().UTC())
	if err := store.UpdateJobApplication(ctx, &updated); err != nil {
		return nil, err
	}

	if existing.Status != updated.Status {
		s.logger.Infow("Job application status changed",
			"job_id", id,
			"from", existing.Status,
			"to", updated.Status)
	}
	return &updated, nil
}

// DeleteJobApplication removes a job application
func (s *JobDataService) DeleteJobApplication(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	store, err := s.store()
	if err != nil {
		return err
	}
	if err := store.DeleteJobApplication(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("Job application deleted", "job_id", id)
	return nil
}

// validateInput checks the input and resolves the effective status
func (s *JobDataService) validateInput(ctx context.Context, input core.JobApplicationInput) (core.ApplicationStatus, error) {
	if err := s.validate.Struct(input); err != nil {
		return "", validationError(err)
	}

	status := input.Status
	if status == "" {
		status = core.ApplicationStatusApplied
	}
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", core.ErrValidation, status)
	}

	if _, err := s.users.GetUser(ctx, input.UserID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", fmt.Errorf("%w: user %s does not exist", core.ErrValidation, input.UserID)
		}
		return "", err
	}
	return status, nil
}

func applyInput(job *core.JobApplication, input core.JobApplicationInput, status core.ApplicationStatus, now time.Time) {
	job.UserID = input.UserID
	job.Company = strings.TrimSpace(input.Company)
	job.Position = strings.TrimSpace(input.Position)
	job.Status = status
	job.Location = strings.TrimSpace(input.Location)
	job.URL = strings.TrimSpace(input.URL)
	job.Salary = strings.TrimSpace(input.Salary)
	job.Notes = input.Notes
	job.AppliedOn = input.AppliedOn
	if job.AppliedOn != nil {
		applied := job.AppliedOn.UTC()
		job.AppliedOn = &applied
	}
	job.UpdatedAt = now
}
