// Package bootstrap opens the storage backends and builds the catalog and
// importers shared by the server and the import CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fr0stylo/venuecal/internal/adapters/blob"
	"github.com/fr0stylo/venuecal/internal/adapters/sqlite"
	"github.com/fr0stylo/venuecal/internal/adapters/uploads"
	"github.com/fr0stylo/venuecal/internal/app/ports"
	appservices "github.com/fr0stylo/venuecal/internal/app/services"
	"github.com/fr0stylo/venuecal/internal/config"
	"github.com/fr0stylo/venuecal/internal/db"
	"github.com/fr0stylo/venuecal/internal/ingest"
	"github.com/fr0stylo/venuecal/internal/seed"
)

// App is the wired core.
type App struct {
	Config   config.Config
	Database *db.Database
	Catalog  *appservices.EventCatalog
	Uploader *uploads.LocalUploader
	Bulk     *ingest.BulkImporter
	Pages    *ingest.PageImporter
	Images   *ingest.ImageImporter

	redis *redis.Client
	log   *slog.Logger
}

// Open opens the database and snapshot backend and builds the catalog.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &App{Config: cfg, Database: database, log: log}
	snapshots, err := app.openSnapshots(ctx)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	app.Catalog = appservices.NewEventCatalog(
		sqlite.NewEventMirror(database),
		snapshots,
		seed.Load,
		appservices.WithLogger(log),
	)
	app.Uploader = uploads.NewLocalUploader(cfg.Uploads.Dir, cfg.Uploads.BaseURL)

	timeout := cfg.FetchTimeout()
	pages := ingest.NewHTTPPageFetcher(timeout)
	app.Images = ingest.NewImageImporter(ingest.NewImageFetcher(timeout), app.Uploader)
	app.Pages = ingest.NewPageImporter(pages, log)
	app.Bulk = ingest.NewBulkImporter(pages, app.Images, app.Catalog, log)
	return app, nil
}

func (a *App) openSnapshots(ctx context.Context) (ports.SnapshotStore, error) {
	switch a.Config.Snapshot.Backend {
	case config.SnapshotBackendRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.Snapshot.Redis.Addr,
			Password: a.Config.Snapshot.Redis.Password,
			DB:       a.Config.Snapshot.Redis.DB,
		})
		store := blob.NewRedisSnapshotStore(a.redis, a.Config.Snapshot.Key)
		if err := store.Ping(ctx); err != nil {
			a.log.Warn("Snapshot store unreachable", "backend", "redis", "addr", a.Config.Snapshot.Redis.Addr, "error", err)
		}
		return store, nil
	case config.SnapshotBackendFile:
		return blob.NewFileSnapshotStore(a.Config.Snapshot.Path), nil
	case config.SnapshotBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", a.Config.Snapshot.Backend)
	}
}

// Close drains pending mirror writes, then releases the backends.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Catalog != nil {
		if err := a.Catalog.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain catalog: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.Database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
