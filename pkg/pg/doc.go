// Package pg bootstraps the PostgreSQL layer of the notification service on
// top of the pgx/v5 driver: pooled connections with startup retry, goose
// schema migrations, and a health check for readiness probes.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		return err
//	}
package pg
