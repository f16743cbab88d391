// Package main is the entry point for the JobAppTrackr API.
package main

import (
	"context"
	"fmt"
	"os"

	"jatrackr/bootstrap"
)

// run boots the application and blocks until it is told to stop.
func run() error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	waitErr := app.WaitForShutdown()

	// Graceful shutdown
	app.Shutdown()

	return waitErr
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
