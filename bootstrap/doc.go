// Package bootstrap provides application initialization and lifecycle management.
// It extracts the boot sequence from main.go into testable, composable components:
// .env loading, environment and settings resolution, logger construction, service
// assembly and the HTTP listener lifecycle.
//
// Usage:
//
//	app, err := bootstrap.NewApp(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown()
//
//	if err := app.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Wait for a shutdown signal or a listener failure
//	if err := app.WaitForShutdown(); err != nil {
//	    log.Print(err)
//	}
package bootstrap
