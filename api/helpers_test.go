package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"jatrackr/config"
	"jatrackr/core"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testUserID = "5f0c1c2e-8a41-4f4e-9a36-0d6a2b8c1f11"
	testJobID  = "8a5c2f70-3d7e-4c1b-9f0a-6b2e1d4c3a22"
)

// newTestConfig returns a config equivalent to the loader defaults
func newTestConfig(env config.Environment) *config.Config {
	cfg := &config.Config{Environment: env}
	cfg.API.Port = 8080
	cfg.API.MaxBodyBytes = 1 << 20
	cfg.API.ShutdownTimeout = 5 * time.Second
	cfg.API.HSTS.MaxAge = 30 * 24 * time.Hour
	cfg.API.HSTS.ExcludedHosts = []string{"localhost", "127.0.0.1", "[::1]"}
	cfg.API.RateLimit.Window = time.Second
	cfg.MongoDB.ConnectTimeout = 10 * time.Second
	cfg.MongoDB.OperationTimeout = 5 * time.Second
	cfg.Database = config.DatabaseSettings{
		ConnectionString:      "mongodb://localhost:27017",
		DatabaseName:          "trackr",
		UsersCollectionName:   "users",
		JobDataCollectionName: "jobdata",
	}
	return cfg
}

type testAPIOptions struct {
	rateLimiter *RateLimiter
	health      HealthChecker
	configure   func(*config.Config)
}

// setupTestAPI builds an API over in-memory services
func setupTestAPI(t *testing.T, env config.Environment, opts testAPIOptions) (*API, *fakeUserService, *fakeJobDataService) {
	t.Helper()

	cfg := newTestConfig(env)
	if opts.configure != nil {
		opts.configure(cfg)
	}

	users := newFakeUserService()
	jobs := newFakeJobDataService()
	api := NewAPI(users, jobs, opts.rateLimiter, opts.health, cfg, zap.NewNop().Sugar())
	return api, users, jobs
}

// serve sends a request through the full pipeline
func serve(api *API, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

// writeWebRoot creates a web root holding the given files
func writeWebRoot(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

// fakeUserService is an in-memory UserServicer. A non-nil err is returned by
// every call; panicOn names a method that panics.
type fakeUserService struct {
	mu      sync.Mutex
	users   map[string]core.User
	err     error
	panicOn string
	nextID  int
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{users: make(map[string]core.User)}
}

func (f *fakeUserService) add(user core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
}

func (f *fakeUserService) check(method string) error {
	if f.panicOn == method {
		panic("boom in " + method)
	}
	return f.err
}

func (f *fakeUserService) ListUsers(ctx context.Context) ([]core.User, error) {
	if err := f.check("ListUsers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]core.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (f *fakeUserService) find(match func(core.User) bool) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUserService) GetUser(ctx context.Context, id string) (*core.User, error) {
	if err := f.check("GetUser"); err != nil {
		return nil, err
	}
	return f.find(func(u core.User) bool { return u.ID == id })
}

func (f *fakeUserService) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	if err := f.check("GetUserByUsername"); err != nil {
		return nil, err
	}
	return f.find(func(u core.User) bool { return u.Username == username })
}

func (f *fakeUserService) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	if err := f.check("GetUserByEmail"); err != nil {
		return nil, err
	}
	return f.find(func(u core.User) bool { return u.Email == email })
}

func (f *fakeUserService) CreateUser(ctx context.Context, input core.UserInput) (*core.User, error) {
	if err := f.check("CreateUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user := core.User{
		ID:       fmt.Sprintf("user-%d", f.nextID),
		Username: input.Username,
		Email:    input.Email,
	}
	f.users[user.ID] = user
	return &user, nil
}

func (f *fakeUserService) UpdateUser(ctx context.Context, id string, input core.UserInput) (*core.User, error) {
	if err := f.check("UpdateUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	user.Username = input.Username
	user.Email = input.Email
	f.users[id] = user
	return &user, nil
}

func (f *fakeUserService) DeleteUser(ctx context.Context, id string) error {
	if err := f.check("DeleteUser"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// fakeJobDataService is an in-memory JobDataServicer
type fakeJobDataService struct {
	mu   sync.Mutex
	jobs map[string]core.JobApplication
	err  error
}

func newFakeJobDataService() *fakeJobDataService {
	return &fakeJobDataService{jobs: make(map[string]core.JobApplication)}
}

func (f *fakeJobDataService) add(job core.JobApplication) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

func (f *fakeJobDataService) ListJobApplications(ctx context.Context) ([]core.JobApplication, error) {
	return f.filter(func(core.JobApplication) bool { return true })
}

func (f *fakeJobDataService) ListJobApplicationsForUser(ctx context.Context, userID string) ([]core.JobApplication, error) {
	return f.filter(func(j core.JobApplication) bool { return j.UserID == userID })
}

func (f *fakeJobDataService) filter(match func(core.JobApplication) bool) ([]core.JobApplication, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs := make([]core.JobApplication, 0, len(f.jobs))
	for _, j := range f.jobs {
		if match(j) {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs, nil
}

func (f *fakeJobDataService) GetJobApplication(ctx context.Context, id string) (*core.JobApplication, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &job, nil
}

func (f *fakeJobDataService) CreateJobApplication(ctx context.Context, input core.JobApplicationInput) (*core.JobApplication, error) {
	if f.err != nil {
		return nil, f.err
	}
	job := core.JobApplication{
		ID:       testJobID,
		UserID:   input.UserID,
		Company:  input.Company,
		Position: input.Position,
		Status:   core.ApplicationStatusApplied,
	}
	f.add(job)
	return &job, nil
}

func (f *fakeJobDataService) UpdateJobApplication(ctx context.Context, id string, input core.JobApplicationInput) (*core.JobApplication, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	job.Company = input.Company
	job.Position = input.Position
	if input.Status != "" {
		job.Status = input.Status
	}
	f.jobs[id] = job
	return &job, nil
}

func (f *fakeJobDataService) DeleteJobApplication(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}
