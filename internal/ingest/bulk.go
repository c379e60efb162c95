package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	"github.com/fr0stylo/venuecal/internal/extract"
	"github.com/fr0stylo/venuecal/internal/observability"
)

// DefaultConcurrency is the number of rows processed at once.
const DefaultConcurrency = 4

// EventSink receives accepted drafts.
type EventSink interface {
	Create(ctx context.Context, draft domain.Draft) (domain.Event, error)
}

// BulkOptions controls one bulk run.
type BulkOptions struct {
	DryRun      bool
	Limit       int
	Concurrency int
}

// RowPreview is the would-be draft for one accepted row.
type RowPreview struct {
	Row   int          `json:"row"`
	Draft domain.Draft `json:"draft"`
}

// RowError is one reported failure, keyed by data row number.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"error"`
}

// BulkResult summarizes a bulk run. Previews and Errors follow input order.
type BulkResult struct {
	Accepted int            `json:"accepted"`
	Skipped  int            `json:"skipped"`
	DryRun   bool           `json:"dryRun"`
	Previews []RowPreview   `json:"previews"`
	Errors   []RowError     `json:"errors"`
	Created  []domain.Event `json:"created,omitempty"`
}

// BulkImporter turns spreadsheet rows into events.
type BulkImporter struct {
	pages   PageFetcher
	images  *ImageImporter
	sink    EventSink
	logger  *slog.Logger
	metrics ingestMetrics
}

// NewBulkImporter wires the row adapter. sink may be nil for dry runs only.
func NewBulkImporter(pages PageFetcher, images *ImageImporter, sink EventSink, logger *slog.Logger) *BulkImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkImporter{
		pages:   pages,
		images:  images,
		sink:    sink,
		logger:  logger,
		metrics: newIngestMetrics(),
	}
}

type rowOutcome struct {
	draft   *domain.Draft
	skipped bool
	errs    []string
}

// Import reads every row, resolves drafts concurrently and, unless DryRun,
// creates them through the sink in input order.
func (b *BulkImporter) Import(ctx context.Context, r io.Reader, opts BulkOptions) (BulkResult, error) {
	ctx, span := observability.StartIngestSpan(ctx, "bulk", "")
	defer span.End()

	rows, err := ReadRows(r)
	if err != nil {
		span.RecordError(err)
		return BulkResult{}, err
	}
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	if !opts.DryRun && b.sink == nil {
		return BulkResult{}, fmt.Errorf("bulk import: no event sink configured")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	outcomes := make([]rowOutcome, len(rows))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, row := range rows {
		g.Go(func() error {
			outcomes[i] = b.processRow(ctx, row, opts.DryRun)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{DryRun: opts.DryRun, Previews: []RowPreview{}, Errors: []RowError{}}
	for i, outcome := range outcomes {
		number := rows[i].Number
		for _, msg := range outcome.errs {
			result.Errors = append(result.Errors, RowError{Row: number, Message: msg})
		}
		if outcome.skipped {
			result.Skipped++
			b.metrics.recordRow(ctx, "csv", "skipped")
			continue
		}
		if outcome.draft == nil {
			b.metrics.recordRow(ctx, "csv", "failed")
			continue
		}
		if !opts.DryRun {
			created, err := b.sink.Create(ctx, *outcome.draft)
			if err != nil {
				result.Errors = append(result.Errors, RowError{Row: number, Message: err.Error()})
				b.metrics.recordRow(ctx, "csv", "failed")
				continue
			}
			result.Created = append(result.Created, created)
		}
		result.Previews = append(result.Previews, RowPreview{Row: number, Draft: *outcome.draft})
		result.Accepted++
		b.metrics.recordRow(ctx, "csv", "accepted")
	}

	b.logger.InfoContext(ctx, "Bulk import finished",
		"rows", len(rows),
		"accepted", result.Accepted,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"dry_run", opts.DryRun,
	)
	return result, nil
}

func (b *BulkImporter) processRow(ctx context.Context, row Row, dryRun bool) rowOutcome {
	if row.Err != nil {
		return rowOutcome{errs: []string{fmt.Sprintf("malformed row: %v", row.Err)}}
	}
	if row.Name == "" {
		return rowOutcome{skipped: true}
	}

	link, hasLink := extract.ResolveURL(nil, row.Link)
	var page *extract.Page
	if hasLink && b.pages != nil {
		fetched, err := b.pages.Fetch(ctx, link)
		if err != nil {
			b.logger.DebugContext(ctx, "row_page_fetch_failed", "row", row.Number, "url", link, "error", err)
		} else {
			page = fetched
		}
	}

	when, ok := extract.ResolveDateTime(extract.Input{Page: page, Cell: row.Start}, extract.RowDateTimeStrategies)
	if !ok {
		return rowOutcome{skipped: true}
	}

	draft := domain.Draft{
		Name:        row.Name,
		Date:        when.Value.Date,
		Time:        when.Value.Time,
		Organizer:   row.Organizer,
		Description: extract.JoinDescriptions(row.ShortDescription, row.LongDescription),
	}
	if hasLink {
		draft.TicketsURL = link
	}

	var outcome rowOutcome
	if imageURL, ok := b.rowImage(row, page); ok {
		if dryRun {
			draft.Image = imageURL
		} else if ref, err := b.copyImage(ctx, imageURL); err != nil {
			outcome.errs = append(outcome.errs, fmt.Sprintf("image: %v", err))
		} else {
			draft.Image = ref
		}
	}
	outcome.draft = &draft
	return outcome
}

// rowImage prefers an explicit image column, then the linked page.
func (b *BulkImporter) rowImage(row Row, page *extract.Page) (string, bool) {
	if row.Image != "" {
		base := pageURL(page)
		if u, ok := extract.ResolveURL(base, row.Image); ok {
			return u, true
		}
	}
	if page == nil {
		return "", false
	}
	candidate, ok := extract.First(extract.Input{Page: page}, extract.ImageStrategies)
	return candidate.Value, ok
}

func (b *BulkImporter) copyImage(ctx context.Context, imageURL string) (string, error) {
	if b.images == nil {
		b.metrics.recordImage(ctx, "skipped")
		return "", fmt.Errorf("no image importer configured")
	}
	ref, err := b.images.Import(ctx, imageURL)
	if err != nil {
		b.metrics.recordImage(ctx, string(ClassifyImageError(err)))
		return "", err
	}
	b.metrics.recordImage(ctx, "uploaded")
	return ref, nil
}
