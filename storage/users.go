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

// UserStorage handles user persistence and retrieval
type UserStorage struct {
	usersColl Collection
	name      string
	timeout   time.Duration
}

// NewUserStorage creates a user store over the named collection
func NewUserStorage(mongoDB *MongoDB, collection string, timeout time.Duration) *UserStorage {
	return newUserStorage(mongoDB.Collection(collection), collection, timeout)
}

func newUserStorage(coll Collection, name string, timeout time.Duration) *UserStorage {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UserStorage{usersColl: coll, name: name, timeout: timeout}
}

// EnsureIndexes creates the unique username and email indexes
func (us *UserStorage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, us.timeout)
	defer cancel()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
	}
	if err := us.usersColl.EnsureIndexes(ctx, models); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// ListUsers retrieves all users ordered by username
func (us *UserStorage) ListUsers(ctx context.Context) ([]core.User, error) {
	defer observe(us.name, "list", time.Now())
	ctx, cancel := context.WithTimeout(ctx, 2*us.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	cursor, err := us.usersColl.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]core.User, 0)
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// GetUser retrieves a single user by ID
func (us *UserStorage) GetUser(ctx context.Context, id string) (*core.User, error) {
	return us.findOne(ctx, "get", bson.M{"_id": id})
}

// GetUserByUsername retrieves a single user by username
func (us *UserStorage) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return us.findOne(ctx, "get_by_username", bson.M{"username": username})
}

// GetUserByEmail retrieves a single user by email address
func (us *UserStorage) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return us.findOne(ctx, "get_by_email", bson.M{"email": email})
}

func (us *UserStorage) findOne(ctx context.Context, operation string, filter bson.M) (*core.User, error) {
	defer observe(us.name, operation, time.Now())
	ctx, cancel := context.WithTimeout(ctx, us.timeout)
	defer cancel()

	var user core.User
	if err := us.usersColl.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a new user. Duplicate usernames or emails yield core.ErrConflict.
func (us *UserStorage) CreateUser(ctx context.Context, user *core.User) error {
	defer observe(us.name, "create", time.Now())
	ctx, cancel := context.WithTimeout(ctx, us.timeout)
	defer cancel()

	if _, err := us.usersColl.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to insert user: %w", translateWriteError(err))
	}
	return nil
}

// UpdateUser replaces the stored user with the same ID
func (us *UserStorage) UpdateUser(ctx context.Context, user *core.User) error {
	defer observe(us.name, "update", time.Now())
	ctx, cancel := context.WithTimeout(ctx, us.timeout)
	defer cancel()

	result, err := us.usersColl.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", translateWriteError(err))
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %w", core.ErrNotFound)
	}
	return nil
}

// DeleteUser deletes a user by ID
func (us *UserStorage) DeleteUser(ctx context.Context, id string) error {
	defer observe(us.name, "delete", time.Now())
	ctx, cancel := context.WithTimeout(ctx, us.timeout)
	defer cancel()

	result, err := us.usersColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("user %w", core.ErrNotFound)
	}
	return nil
}
