// Package pg bootstraps PostgreSQL access on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config (DATABASE_URL plus pool limits),
// retrying while the database comes up. Migrate applies goose migrations read
// from any fs.FS, which lets packages ship their schema embedded next to the
// code that queries it:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pg.Migrate(ctx, pool, twofactor.Migrations, cfg, log); err != nil {
//	    return err
//	}
//
// IsNotFoundError and IsForeignKeyViolationError classify
// driver errors without importing pgconn at call sites.
package pg
