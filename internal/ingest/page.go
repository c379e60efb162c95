package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	"github.com/fr0stylo/venuecal/internal/extract"
	"github.com/fr0stylo/venuecal/internal/observability"
)

// PageImporter builds a best-effort draft from a single event page.
type PageImporter struct {
	pages   PageFetcher
	logger  *slog.Logger
	metrics ingestMetrics
}

// NewPageImporter wires the single-URL adapter.
func NewPageImporter(pages PageFetcher, logger *slog.Logger) *PageImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageImporter{pages: pages, logger: logger, metrics: newIngestMetrics()}
}

// Import fetches rawURL once. Any fetch failure is a single ErrPageFetch;
// otherwise every draft field is optional except TicketsURL, which is always
// the input URL.
func (p *PageImporter) Import(ctx context.Context, rawURL string) (domain.Draft, error) {
	rawURL = strings.TrimSpace(rawURL)
	ctx, span := observability.StartIngestSpan(ctx, "page", rawURL)
	defer span.End()

	if _, err := parseHTTPURL(rawURL); err != nil {
		p.metrics.recordRow(ctx, "url", "failed")
		span.RecordError(err)
		return domain.Draft{}, fmt.Errorf("%w: %v", ErrPageFetch, err)
	}
	page, err := p.pages.Fetch(ctx, rawURL)
	if err != nil {
		p.metrics.recordRow(ctx, "url", "failed")
		span.RecordError(err)
		return domain.Draft{}, fmt.Errorf("%w: %v", ErrPageFetch, err)
	}

	in := extract.Input{Page: page}
	draft := domain.Draft{TicketsURL: rawURL}
	if c, ok := extract.First(in, extract.TitleStrategies); ok {
		draft.Name = c.Value
	}
	if c, ok := extract.First(in, extract.ImageStrategies); ok {
		draft.Image = c.Value
	}
	if c, ok := extract.First(in, extract.OrganizerStrategies); ok {
		draft.Organizer = c.Value
	}
	if c, ok := extract.ResolveDateTime(in, extract.PageDateTimeStrategies); ok {
		draft.Date = c.Value.Date
		draft.Time = c.Value.Time
	}
	if c, ok := extract.First(in, extract.PageDescriptionStrategies); ok {
		draft.Description = c.Value
	}

	p.metrics.recordRow(ctx, "url", "accepted")
	p.logger.DebugContext(ctx, "page_imported", "url", rawURL, "has_date", !draft.Date.IsZero(), "has_image", draft.Image != "")
	return draft, nil
}

func pageURL(page *extract.Page) *url.URL {
	if page == nil {
		return nil
	}
	return page.URL
}
