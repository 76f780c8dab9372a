// Package httpserver runs the operational HTTP listener of notifykit: health
// probes and the manual scan trigger.
//
// Run blocks until its context is cancelled and then shuts the server down
// gracefully within the configured shutdown timeout. Signal handling belongs
// to the caller, usually through signal.NotifyContext, so the server composes
// with the scheduler in a single errgroup.
//
// Liveness and Readiness are ready-made probe handlers. Readiness runs each
// Check with the request context and answers 503 naming the failed ones.
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.Liveness())
//	r.Get("/readyz", httpserver.Readiness(log,
//		httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)},
//	))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, r) })
//
// Run wraps listen errors with ErrStart and Shutdown wraps its failures with
// ErrShutdown.
package httpserver
