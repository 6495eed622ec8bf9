// Package app wires the application together: configuration loading,
// logging and tracing setup, service construction, the chi router, and
// graceful shutdown on SIGINT or SIGTERM.
//
// The typical entry point is:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Initialization errors are returned to the caller rather than calling
// os.Exit, so main controls the exit process.
package app
