// Package pg bootstraps PostgreSQL access over pgx/v5: a retrying pool
// constructor, goose migrations from an embedded filesystem, a readiness
// probe and helpers that classify driver errors.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
//
// IsDuplicateKeyError is the conflict signal used by the billing event ledger.
package pg
