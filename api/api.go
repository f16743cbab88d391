// Package api JobAppTrackr API
//
//	@title			User Management API
//	@version		v1
//	@description	An HTTP API for **managing user accounts** on JobAppTrackr. Actions include creating, updating, and deleting user records, plus retrieving user information by ID, username, or email address.
//	@contact.name	R C
//	@contact.url	https://github.com/Bhodrolok/
//	@contact.email	korbolorbo1214@proton.me
//
// @BasePath	/
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"jatrackr/config"
	"jatrackr/core"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UserServicer is the user management surface the users controller needs
type UserServicer interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	CreateUser(ctx context.Context, input core.UserInput) (*core.User, error)
	UpdateUser(ctx context.Context, id string, input core.UserInput) (*core.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// JobDataServicer is the job application surface the jobdata controller needs
type JobDataServicer interface {
	ListJobApplications(ctx context.Context) ([]core.JobApplication, error)
	ListJobApplicationsForUser(ctx context.Context, userID string) ([]core.JobApplication, error)
	GetJobApplication(ctx context.Context, id string) (*core.JobApplication, error)
	CreateJobApplication(ctx context.Context, input core.JobApplicationInput) (*core.JobApplication, error)
	UpdateJobApplication(ctx context.Context, id string, input core.JobApplicationInput) (*core.JobApplication, error)
	DeleteJobApplication(ctx context.Context, id string) error
}

// HealthChecker reports whether a backing dependency is usable
type HealthChecker func(ctx context.Context) error

// API holds the API server
type API struct {
	router      *mux.Router
	handler     http.Handler
	server      *http.Server
	serverMu    sync.Mutex
	stages      []StageName
	controllers map[string]controller
	users       UserServicer
	jobData     JobDataServicer
	rateLimiter *RateLimiter
	health      HealthChecker
	config      *config.Config
	logger      *zap.SugaredLogger

	httpsWarnOnce sync.Once
}

// NewAPI creates a new API server and assembles its pipeline for the
// configured environment. rateLimiter and health may be nil.
func NewAPI(users UserServicer, jobData JobDataServicer, rateLimiter *RateLimiter, health HealthChecker, config *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		users:       users,
		jobData:     jobData,
		rateLimiter: rateLimiter,
		health:      health,
		config:      config,
		logger:      logger,
	}
	api.controllers = api.registerControllers()

	api.stages = PipelineStages(config.Environment, PipelineOptions{
		RateLimit: rateLimiter != nil && config.RateLimitEnabled(),
	})
	api.handler = api.buildPipeline(api.stages)

	logger.Infow("Request pipeline assembled",
		"environment", config.Environment.String(),
		"stages", api.stages,
		"controllers", api.controllerNames())
	return api
}

// Handler returns the assembled request pipeline
func (a *API) Handler() http.Handler {
	return a.handler
}

// Stages returns the pipeline stages in request order
func (a *API) Stages() []StageName {
	return append([]StageName(nil), a.stages...)
}

func (a *API) newServer(addr string) *http.Server {
	a.serverMu.Lock()
	defer a.serverMu.Unlock()
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return a.server
}

// Start starts the API server
func (a *API) Start(port int) error {
	return a.newServer(fmt.Sprintf(":%d", port)).ListenAndServe()
}

// StartTLS starts the API server with TLS
func (a *API) StartTLS(port int, certFile, keyFile string) error {
	return a.newServer(fmt.Sprintf(":%d", port)).ListenAndServeTLS(certFile, keyFile)
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.serverMu.Lock()
	server := a.server
	a.serverMu.Unlock()
	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}
