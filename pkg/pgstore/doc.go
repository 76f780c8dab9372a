// Package pgstore implements the storage interfaces of notifykit on
// PostgreSQL using pgx.
//
// Each store takes a DB, satisfied by *pgxpool.Pool, so the same pool can
// back every store. Schema changes live in Migrations and are applied with
// pg.Migrate:
//
//	pool, err := pg.Connect(ctx, cfg.Postgres)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg.Postgres, log); err != nil {
//		return err
//	}
//
//	schedules := pgstore.NewScheduleStore(pool)
//	webhooks := pgstore.NewWebhookStore(pool)
//
// Missing rows are reported with the not-found sentinel of the owning
// package, for example dispatch.ErrNotFound or webhook.ErrNotFound.
package pgstore
