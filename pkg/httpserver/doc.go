// Package httpserver runs an http.Server until its context is cancelled and
// serves liveness and readiness probes.
//
//	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err := httpserver.New(cfg, httpserver.WithLogger(log)).Run(ctx, router)
package httpserver
