package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"jatrackr/core"
)

// memoryUserStore is an in-memory UserStore enforcing unique username and email
type memoryUserStore struct {
	mu       sync.Mutex
	users    map[string]core.User
	getCalls int
	err      error
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]core.User)}
}

func (m *memoryUserStore) ListUsers(ctx context.Context) ([]core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	users := make([]core.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *memoryUserStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %w", core.ErrNotFound)
	}
	return &u, nil
}

func (m *memoryUserStore) find(match func(core.User) bool) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %w", core.ErrNotFound)
}

func (m *memoryUserStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return m.find(func(u core.User) bool { return u.Username == username })
}

func (m *memoryUserStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return m.find(func(u core.User) bool { return u.Email == email })
}

func (m *memoryUserStore) conflicts(user *core.User) bool {
	for id, u := range m.users {
		if id != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return true
		}
	}
	return false
}

func (m *memoryUserStore) CreateUser(ctx context.Context, user *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.conflicts(user) {
		return fmt.Errorf("failed to insert user: %w", core.ErrConflict)
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserStore) UpdateUser(ctx context.Context, user *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return fmt.Errorf("user %w", core.ErrNotFound)
	}
	if m.conflicts(user) {
		return fmt.Errorf("failed to update user: %w", core.ErrConflict)
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %w", core.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

// memoryJobStore is an in-memory JobDataStore
type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]core.JobApplication
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: make(map[string]core.JobApplication)}
}

func (m *memoryJobStore) filter(match func(core.JobApplication) bool) []core.JobApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]core.JobApplication, 0)
	for _, j := range m.jobs {
		if match(j) {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs
}

func (m *memoryJobStore) ListJobApplications(ctx context.Context) ([]core.JobApplication, error) {
	return m.filter(func(core.JobApplication) bool { return true }), nil
}

func (m *memoryJobStore) ListJobApplicationsForUser(ctx context.Context, userID string) ([]core.JobApplication, error) {
	return m.filter(func(j core.JobApplication) bool { return j.UserID == userID }), nil
}

func (m *memoryJobStore) GetJobApplication(ctx context.Context, id string) (*core.JobApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job application %w", core.ErrNotFound)
	}
	return &j, nil
}

func (m *memoryJobStore) CreateJobApplication(ctx context.Context, job *core.JobApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memoryJobStore) UpdateJobApplication(ctx context.Context, job *core.JobApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return fmt.Errorf("job application %w", core.ErrNotFound)
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memoryJobStore) DeleteJobApplication(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("job application %w", core.ErrNotFound)
	}
	delete(m.jobs, id)
	return nil
}

func (m *memoryJobStore) DeleteJobApplicationsForUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.jobs {
		if j.UserID == userID {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}
