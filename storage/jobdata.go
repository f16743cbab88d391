package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jatrackr/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobDataStorage handles job application persistence and retrieval
type JobDataStorage struct {
	jobsColl Collection
	name     string
	timeout  time.Duration
}

// NewJobDataStorage creates a job data store over the named collection
func NewJobDataStorage(mongoDB *MongoDB, collection string, timeout time.Duration) *JobDataStorage {
	return newJobDataStorage(mongoDB.Collection(collection), collection, timeout)
}

func newJobDataStorage(coll Collection, name string, timeout time.Duration) *JobDataStorage {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &JobDataStorage{jobsColl: coll, name: name, timeout: timeout}
}

// EnsureIndexes creates the owner lookup index
func (js *JobDataStorage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, js.timeout)
	defer cancel()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_created"),
		},
	}
	if err := js.jobsColl.EnsureIndexes(ctx, models); err != nil {
		return fmt.Errorf("failed to create job data indexes: %w", err)
	}
	return nil
}

// ListJobApplications retrieves every job application, newest first
func (js *JobDataStorage) ListJobApplications(ctx context.Context) ([]core.JobApplication, error) {
	return js.find(ctx, "list", bson.M{})
}

// ListJobApplicationsForUser retrieves the job applications owned by a user, newest first
func (js *JobDataStorage) ListJobApplicationsForUser(ctx context.Context, userID string) ([]core.JobApplication, error) {
	return js.find(ctx, "list_for_user", bson.M{"user_id": userID})
}

func (js *JobDataStorage) find(ctx context.Context, operation string, filter bson.M) ([]core.JobApplication, error) {
	defer observe(js.name, operation, time.Now())
	ctx, cancel := context.WithTimeout(ctx, 2*js.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := js.jobsColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find job applications: %w", err)
	}
	defer cursor.Close(ctx)

	jobs := make([]core.JobApplication, 0)
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode job applications: %w", err)
	}
	return jobs, nil
}

// GetJobApplication retrieves a single job application by ID
func (js *JobDataStorage) GetJobApplication(ctx context.Context, id string) (*core.JobApplication, error) {
	defer observe(js.name, "get", time.Now())
	ctx, cancel := context.WithTimeout(ctx, js.timeout)
	defer cancel()

	var job core.JobApplication
	if err := js.jobsColl.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("job application %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find job application: %w", err)
	}
	return &job, nil
}

// CreateJobApplication inserts a new job application
func (js *JobDataStorage) CreateJobApplication(ctx context.Context, job *core.JobApplication) error {
	defer observe(js.name, "create", time.Now())
	ctx, cancel := context.WithTimeout(ctx, js.timeout)
	defer cancel()

	if _, err := js.jobsColl.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("failed to insert job application: %w", translateWriteError(err))
	}
	return nil
}

// UpdateJobApplication replaces the stored job application with the same ID
func (js *JobDataStorage) UpdateJobApplication(ctx context.Context, job *core.JobApplication) error {
	defer observe(js.name, "update", time.Now())
	ctx, cancel := context.WithTimeout(ctx, js.timeout)
	defer cancel()

	result, err := js.jobsColl.ReplaceOne(ctx, bson.M{"_id": job.ID}, job)
	if err != nil {
		return fmt.Errorf("failed to update job application: %w", translateWriteError(err))
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("job application %w", core.ErrNotFound)
	}
	return nil
}

// DeleteJobApplication deletes a job application by ID
func (js *JobDataStorage) DeleteJobApplication(ctx context.Context, id string) error {
	defer observe(js.name, "delete", time.Now())
	ctx, cancel := context.WithTimeout(ctx, js.timeout)
	defer cancel()

	result, err := js.jobsColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete job application: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("job application %w", core.ErrNotFound)
	}
	return nil
}

// DeleteJobApplicationsForUser removes every job application owned by a user
// and returns how many were deleted.
func (js *JobDataStorage) DeleteJobApplicationsForUser(ctx context.Context, userID string) (int64, error) {
	defer observe(js.name, "delete_for_user", time.Now())
	ctx, cancel := context.WithTimeout(ctx, js.timeout)
	defer cancel()

	result, err := js.jobsColl.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete job applications for user: %w", err)
	}
	return result.DeletedCount, nil
}
