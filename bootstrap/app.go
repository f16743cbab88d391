package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"jatrackr/api"
	"jatrackr/config"

	"go.uber.org/zap"
)

// App represents the JobAppTrackr API with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Services
	Services  *Services
	APIServer *api.API

	// Lifecycle
	serviceWg    sync.WaitGroup
	serverErrCh  chan error
	shutdownOnce sync.Once
}

// NewApp runs the boot sequence in the current working directory: load .env,
// resolve the environment and settings, build the logger and assemble the
// services and request pipeline.
func NewApp(ctx context.Context) (*App, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	return NewAppInDir(ctx, dir)
}

// NewAppInDir is NewApp with the .env and settings files read from dir
func NewAppInDir(ctx context.Context, dir string) (*App, error) {
	cfg, boot, err := InitConfig(dir)
	if err != nil {
		return nil, err
	}

	logger, sugar, err := InitLogger(cfg.Environment, cfg.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sugar.Info("JobAppTrackr API starting...")
	LogStartupConfig(cfg, boot, sugar)

	services, err := BuildServices(ctx, cfg, sugar)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	app := &App{
		Config:      cfg,
		Logger:      logger,
		Sugar:       sugar,
		Services:    services,
		serverErrCh: make(chan error, 1),
	}
	app.APIServer = api.NewAPI(
		services.Users,
		services.JobData,
		services.RateLimiter,
		services.HealthCheck(cfg.Database),
		cfg,
		sugar,
	)
	return app, nil
}

// Start starts the HTTP listener in the background
func (a *App) Start(ctx context.Context) error {
	if a.APIServer == nil {
		return errors.New("api server not initialized")
	}

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		port := a.Config.API.Port
		a.Sugar.Infow("API server starting", "port", port, "tls", a.Config.API.TLS)

		var err error
		if a.Config.API.TLS {
			err = a.APIServer.StartTLS(port, a.Config.API.CertFile, a.Config.API.KeyFile)
		} else {
			err = a.APIServer.Start(port)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server error", "error", err)
			a.serverErrCh <- err
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or the HTTP
// listener fails. It returns the listener error, if any.
func (a *App) WaitForShutdown() error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
		return nil
	case err := <-a.serverErrCh:
		return fmt.Errorf("api server failed: %w", err)
	}
}

// Shutdown gracefully shuts down all components. It is safe to call more
// than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *App) shutdown() {
	a.Sugar.Info("Shutting down...")

	timeout := a.Config.API.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	a.Sugar.Info("Phase 1: Stopping API server...")
	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
		cancel()
	}

	a.Sugar.Info("Phase 2: Waiting for service goroutines to complete...")
	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout + 5*time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	a.Sugar.Info("Phase 3: Closing connections...")
	if a.Services != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		a.Services.Close(ctx, a.Sugar)
		cancel()
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
