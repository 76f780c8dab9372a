// Package pg connects notifykit to PostgreSQL through a pgx connection pool
// and applies schema migrations with goose.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, "migrations", cfg, log); err != nil {
//	    return err
//	}
//
// Healthcheck returns a closure suitable for readiness probes, and the
// Is*Error helpers classify driver errors without importing pgconn.
package pg
