package main

import (
	"log/slog"

	"tkb/internal/cache"
	"tkb/internal/config"
	"tkb/internal/query"
	"tkb/internal/snapshot"
)

// newStack wires the full query stack from configuration: snapshot
// builder, cache manager, query engine. The returned cleanup stops the
// manager and must run before exit.
func newStack(cfg *config.Config, logger *slog.Logger) (*cache.Manager, *query.Engine, func()) {
	builder := snapshot.NewBuilder(snapshot.Options{
		StorePath:  cfg.Store.Path,
		ShapesPath: cfg.Shapes.Path,
		Scope: snapshot.Scope{
			Emails:     cfg.Scope.AccountEmails,
			AccountIDs: cfg.Scope.UserAccountIDs,
		},
		Logger: logger,
	})
	mgr := cache.New(builder, cache.Options{
		MaxAge:      cfg.MaxAge(),
		RefreshWait: cfg.RefreshWait(),
		Logger:      logger,
	})
	engine := query.NewEngine(mgr, cfg, logger)
	return mgr, engine, func() { mgr.Close() }
}

// newEngine is newStack for commands that never need the manager itself.
func newEngine(cfg *config.Config, logger *slog.Logger) (*query.Engine, func()) {
	_, engine, cleanup := newStack(cfg, logger)
	return engine, cleanup
}
