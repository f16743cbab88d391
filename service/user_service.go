package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jatrackr/core"
	"jatrackr/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// Constants
// ============================================================================

const (
	maxIDLength = 100 // Maximum accepted id/username/email path parameter

	defaultUserCacheSize = 1000
	userCacheTTL         = 10 * time.Minute
)

// UserStore defines user storage operations needed by the service.
// Defined here (consumer package) so tests can supply fakes.
type UserStore interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	CreateUser(ctx context.Context, user *core.User) error
	UpdateUser(ctx context.Context, user *core.User) error
	DeleteUser(ctx context.Context, id string) error
}

// SharedUserCache is a cache shared by every instance, such as Redis. Values
// are JSON encoded by the implementation.
type SharedUserCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UserJobsRemover deletes the job applications owned by a user
type UserJobsRemover interface {
	DeleteJobApplicationsForUser(ctx context.Context, userID string) (int64, error)
}

// UserStoreProvider resolves the user store on demand. The first call may open
// the database connection; its error is returned on every call.
type UserStoreProvider func() (UserStore, error)

// UserJobsRemoverProvider resolves the job data cleanup on demand
type UserJobsRemoverProvider func() (UserJobsRemover, error)

// UserService implements user management on top of a lazily resolved store.
// Reads by id go through an expiring LRU cache and, when configured, a shared
// cache. Both are invalidated around every write.
type UserService struct {
	store    UserStoreProvider
	jobs     UserJobsRemoverProvider
	validate *validator.Validate
	cache    *lru.LRU[string, core.User]
	shared   SharedUserCache
	logger   *zap.SugaredLogger
}

// cachedUser keeps the password hash that core.User hides from JSON
type cachedUser struct {
	core.User
	PasswordHash string `json:"password_hash"`
}

// NewUserService creates a new UserService. jobs may be nil, in which case
// deleting a user leaves its job applications in place.
func NewUserService(store UserStoreProvider, jobs UserJobsRemoverProvider, cacheSize int, logger *zap.SugaredLogger) *UserService {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if cacheSize <= 0 {
		cacheSize = defaultUserCacheSize
	}

	return &UserService{
		store:    store,
		jobs:     jobs,
		validate: newValidator(),
		cache:    lru.NewLRU[string, core.User](cacheSize, nil, userCacheTTL),
		logger:   logger,
	}
}

// UseSharedCache adds a second-level cache consulted after the local LRU.
// Call it before the service handles requests.
func (s *UserService) UseSharedCache(cache SharedUserCache) {
	s.shared = cache
}

// ListUsers returns every user ordered by username
func (s *UserService) ListUsers(ctx context.Context) ([]core.User, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.ListUsers(ctx)
}

// GetUser returns a user by id
func (s *UserService) GetUser(ctx context.Context, id string) (*core.User, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(id); ok {
		metrics.CacheHits.WithLabelValues("users").Inc()
		return &cached, nil
	}
	metrics.CacheMisses.WithLabelValues("users").Inc()

	if user, ok := s.getShared(ctx, id); ok {
		s.cache.Add(id, *user)
		return user, nil
	}

	store, err := s.store()
	if err != nil {
		return nil, err
	}
	user, err := store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(user.ID, *user)
	s.setShared(ctx, user)
	return user, nil
}

func (s *UserService) getShared(ctx context.Context, id string) (*core.User, bool) {
	if s.shared == nil {
		return nil, false
	}
	var cached cachedUser
	found, err := s.shared.Get(ctx, core.GetUserCacheKey(id), &cached)
	if err != nil {
		s.logger.Warnw("Shared user cache read failed", "user_id", id, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	user := cached.User
	user.PasswordHash = cached.PasswordHash
	return &user, true
}

func (s *UserService) setShared(ctx context.Context, user *core.User) {
	if s.shared == nil {
		return
	}
	entry := cachedUser{User: *user, PasswordHash: user.PasswordHash}
	if err := s.shared.Set(ctx, core.GetUserCacheKey(user.ID), entry, userCacheTTL); err != nil {
		s.logger.Warnw("Shared user cache write failed", "user_id", user.ID, "error", err)
	}
}

// invalidate drops id from both caches. Writers call it before and after the
// store write so a read racing the write cannot leave the old record cached.
func (s *UserService) invalidate(ctx context.Context, id string) {
	s.cache.Remove(id)
	if s.shared == nil {
		return
	}
	if err := s.shared.Delete(ctx, core.GetUserCacheKey(id)); err != nil {
		s.logger.Warnw("Shared user cache invalidation failed", "user_id", id, "error", err)
	}
}

// GetUserByUsername returns a user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	if err := requireID("username", username); err != nil {
		return nil, err
	}
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.GetUserByUsername(ctx, username)
}

// GetUserByEmail returns a user by email address. The lookup is case-insensitive.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	if err := requireID("email", email); err != nil {
		return nil, err
	}
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.GetUserByEmail(ctx, normalizeEmail(email))
}

// CreateUser validates input, hashes the password and stores a new user
func (s *UserService) CreateUser(ctx context.Context, input core.UserInput) (*core.User, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", core.ErrValidation)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &core.User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(input.Username),
		Email:        normalizeEmail(input.Email),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	store, err := s.store()
	if err != nil {
		return nil, err
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Infow("User created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// UpdateUser replaces a user's profile. An empty password keeps the current hash.
func (s *UserService) UpdateUser(ctx context.Context, id string, input core.UserInput) (*core.User, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	store, err := s.store()
	if err != nil {
		return nil, err
	}
	existing, err := store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Username = strings.TrimSpace(input.Username)
	updated.Email = normalizeEmail(input.Email)
	updated.FirstName = strings.TrimSpace(input.FirstName)
	updated.LastName = strings.TrimSpace(input.LastName)
	updated.UpdatedAt = time.Now().UTC()
	if input.Password != "" {
		hash, err := hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}

	s.invalidate(ctx, id)
	err = store.UpdateUser(ctx, &updated)
	s.invalidate(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User updated", "user_id", id)
	return &updated, nil
}

// DeleteUser removes a user and, when configured, the user's job applications
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	store, err := s.store()
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	err = store.DeleteUser(ctx, id)
	s.invalidate(ctx, id)
	if err != nil {
		return err
	}

	if s.jobs != nil {
		remover, err := s.jobs()
		if err != nil {
			return fmt.Errorf("user deleted but job applications were not: %w", err)
		}
		removed, err := remover.DeleteJobApplicationsForUser(ctx, id)
		if err != nil {
			return fmt.Errorf("user deleted but job applications were not: %w", err)
		}
		s.logger.Infow("User deleted", "user_id", id, "job_applications_removed", removed)
		return nil
	}

	s.logger.Infow("User deleted", "user_id", id)
	return nil
}

// VerifyPassword reports whether password matches the user's stored hash
func (s *UserService) VerifyPassword(user *core.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *UserService) validateInput(input core.UserInput) error {
	if err := s.validate.Struct(input); err != nil {
		return validationError(err)
	}
	if !validUsername(strings.TrimSpace(input.Username)) {
		return fmt.Errorf("%w: username may only contain letters, digits, '_', '-', '.' and '@'", core.ErrValidation)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", core.ErrValidation)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
