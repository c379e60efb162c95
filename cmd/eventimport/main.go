package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fr0stylo/venuecal/internal/bootstrap"
	"github.com/fr0stylo/venuecal/internal/calendar"
	"github.com/fr0stylo/venuecal/internal/config"
	"github.com/fr0stylo/venuecal/internal/ingest"
	"github.com/fr0stylo/venuecal/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "eventimport",
	Short: "Import venue events outside the HTTP server",
	Long: `Runs the spreadsheet and event-page importers against the configured
database and snapshot store. Results are printed as JSON.`,
	SilenceUsage: true,
}

func init() {
	csvCmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import a spreadsheet export",
		Args:  cobra.ExactArgs(1),
		RunE:  runCSV,
	}
	csvCmd.Flags().Bool("dry-run", false, "preview rows without creating events")
	csvCmd.Flags().Int("limit", 0, "process only the first N rows")

	urlCmd := &cobra.Command{
		Use:   "url <url>",
		Short: "Extract an event draft from a public event page",
		Args:  cobra.ExactArgs(1),
		RunE:  runURL,
	}

	icsCmd := &cobra.Command{
		Use:   "ics",
		Short: "Write the calendar feed to stdout",
		Args:  cobra.NoArgs,
		RunE:  runICS,
	}

	rootCmd.AddCommand(csvCmd, urlCmd, icsCmd)
}

func runCSV(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
		result, err := app.Bulk.Import(ctx, f, ingest.BulkOptions{
			DryRun:      dryRun,
			Limit:       limit,
			Concurrency: app.Config.Ingestion.Concurrency,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	})
}

func runURL(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
		draft, err := app.Pages.Import(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"draft": draft})
	})
}

func runICS(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
		feed := calendar.Feed(app.Catalog.List(ctx), calendar.FeedOptions{
			Name:      app.Config.Calendar.Name,
			Timezone:  app.Config.Calendar.Timezone,
			PublicURL: app.Config.Server.PublicURL,
		}, time.Now())
		_, err := fmt.Fprint(cmd.OutOrStdout(), feed)
		return err
	})
}

// withApp opens the core for one command and drains mirror writes before exit.
func withApp(ctx context.Context, fn func(context.Context, *bootstrap.App) error) error {
	log := slog.New(observability.WrapSlogHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	slog.SetDefault(log)

	cfg, err := config.LoadForTool()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Error("Failed to flush event mirrors", "error", err)
		}
	}()

	return fn(observability.WithActor(ctx, "cli"), app)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
