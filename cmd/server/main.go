package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/venuecal/internal/bootstrap"
	"github.com/fr0stylo/venuecal/internal/config"
	"github.com/fr0stylo/venuecal/internal/observability"
	"github.com/fr0stylo/venuecal/internal/server"
	"github.com/fr0stylo/venuecal/internal/server/routes"
)

const shutdownTimeout = 15 * time.Second

func Run() error {
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	log := slog.New(observability.WrapSlogHandler(baseHandler))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.UsesLocalSessionSecret() {
		slog.Warn("VENUECAL_SESSION_SECRET not set, using local development fallback")
	}
	if cfg.Auth.AdminToken == "" {
		slog.Warn("VENUECAL_ADMIN_TOKEN not set, admin API disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.SetupOpenTelemetry(ctx, log, observability.OpenTelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	app, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(ctx); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()

	if cfg.Database.LogTiming {
		go app.Database.LogLatency(ctx, log, time.Minute, 5)
	}

	srv := server.New(log, server.Options{UploadDir: cfg.Uploads.Dir, UploadPath: uploadPath(cfg)})
	auth := routes.NewAuthRoutes(routes.AuthConfig{
		SessionKey:    cfg.Auth.SessionSecret,
		AdminToken:    cfg.Auth.AdminToken,
		SecureCookies: cfg.Auth.SecureCookie,
	})
	srv.RegisterRouter(auth)
	srv.RegisterRouter(routes.NewEventRoutes(app.Catalog, routes.CalendarConfig{
		Name:      cfg.Calendar.Name,
		Location:  cfg.Location(),
		PublicURL: cfg.Server.PublicURL,
	}))
	srv.RegisterRouter(routes.NewAdminRoutes(auth, routes.AdminDeps{
		Events:      app.Catalog,
		Bulk:        app.Bulk,
		Pages:       app.Pages,
		Images:      app.Images,
		Concurrency: cfg.Ingestion.Concurrency,
		Logger:      log,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// uploadPath serves files under the configured base URL when it is a local
// path; absolute base URLs point at an external host serving the same dir.
func uploadPath(cfg config.Config) string {
	if len(cfg.Uploads.BaseURL) > 0 && cfg.Uploads.BaseURL[0] == '/' {
		return cfg.Uploads.BaseURL
	}
	return "/uploads"
}

func main() {
	if err := Run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
