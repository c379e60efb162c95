package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	appservices "github.com/fr0stylo/venuecal/internal/app/services"
	"github.com/fr0stylo/venuecal/internal/config"
	"github.com/fr0stylo/venuecal/internal/seed"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "venuecal")},
		Snapshot: config.SnapshotConfig{
			Backend: backend,
			Path:    filepath.Join(dir, "snapshot.json"),
		},
		Uploads:   config.UploadsConfig{Dir: filepath.Join(dir, "uploads")},
		Ingestion: config.IngestionConfig{FetchTimeoutMS: 1000, Concurrency: 2},
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenSeedsBundledEventsOnFirstRun(t *testing.T) {
	ctx := context.Background()
	app, err := Open(ctx, testConfig(t, config.SnapshotBackendNone), quiet())
	require.NoError(t, err)
	defer func() { _ = app.Close(ctx) }()

	bundled, err := seed.Load()
	require.NoError(t, err)
	assert.Len(t, app.Catalog.List(ctx), len(bundled))
}

func TestBundledEventIDsAreStableAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.SnapshotBackendFile)

	ids := func() []string {
		app, err := Open(ctx, cfg, quiet())
		require.NoError(t, err)
		defer func() { require.NoError(t, app.Close(ctx)) }()
		var out []string
		for _, e := range app.Catalog.List(ctx) {
			out = append(out, e.ID)
		}
		return out
	}

	first := ids()
	require.NotEmpty(t, first)
	assert.Equal(t, first, ids(), "unedited bundled events keep their ids")
}

func TestCatalogSurvivesRestartThroughRelationalMirror(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.SnapshotBackendFile)

	first, err := Open(ctx, cfg, quiet())
	require.NoError(t, err)
	_, err = first.Catalog.ReplaceAll(ctx, []domain.Event{{Name: "Only show", Date: "2025-06-01", Time: "20:00"}})
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	raw, err := os.ReadFile(cfg.Snapshot.Path)
	require.NoError(t, err)
	doc, err := appservices.DecodeSnapshot(raw)
	require.NoError(t, err)
	require.Len(t, doc.Events, 1)

	second, err := Open(ctx, cfg, quiet())
	require.NoError(t, err)
	defer func() { _ = second.Close(ctx) }()

	events := second.Catalog.List(ctx)
	require.Len(t, events, 1)
	assert.Equal(t, "Only show", events[0].Name)
	assert.Equal(t, doc.Events[0].ID, events[0].ID)
}

func TestOpenWithRedisSnapshots(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := testConfig(t, config.SnapshotBackendRedis)
	cfg.Snapshot.Redis.Addr = mr.Addr()
	cfg.Snapshot.Key = "test:snapshot"

	app, err := Open(ctx, cfg, quiet())
	require.NoError(t, err)
	_, err = app.Catalog.Create(ctx, domain.Draft{Name: "Cached", Date: "2025-07-01"})
	require.NoError(t, err)
	require.NoError(t, app.Close(ctx))

	assert.True(t, mr.Exists("test:snapshot"))
}
