package db

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fr0stylo/venuecal/internal/db/queries"
	"github.com/fr0stylo/venuecal/internal/observability"
)

// The mirror issues a handful of named queries; a short window per name is
// enough for the periodic latency log.
const latencyWindow = 256

type queryLatencyStats struct {
	Name   string
	Count  int
	Errors int
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
}

type queryWindow struct {
	durations []time.Duration
	errors    int
}

type queryLatencyTracker struct {
	mu       sync.Mutex
	windows  map[string]*queryWindow
	duration metric.Float64Histogram
}

func newQueryLatencyTracker() *queryLatencyTracker {
	duration, _ := otel.Meter("github.com/fr0stylo/venuecal/internal/db").Float64Histogram(
		"venuecal.db.query.duration",
		metric.WithUnit("ms"),
	)
	return &queryLatencyTracker{windows: make(map[string]*queryWindow), duration: duration}
}

func (t *queryLatencyTracker) observe(ctx context.Context, name string, elapsed time.Duration, err error) {
	if t == nil {
		return
	}
	if t.duration != nil {
		t.duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(
			attribute.String("db.query", name),
			attribute.Bool("error", err != nil),
		))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[name]
	if !ok {
		w = &queryWindow{}
		t.windows[name] = w
	}
	w.durations = append(w.durations, elapsed)
	if len(w.durations) > latencyWindow {
		w.durations = w.durations[len(w.durations)-latencyWindow:]
	}
	if err != nil {
		w.errors++
	}
}

// snapshot returns per-query stats, slowest p95 first.
func (t *queryLatencyTracker) snapshot() []queryLatencyStats {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]queryLatencyStats, 0, len(t.windows))
	for name, w := range t.windows {
		if len(w.durations) == 0 {
			continue
		}
		sorted := slices.Clone(w.durations)
		slices.Sort(sorted)
		last := len(sorted) - 1
		stats = append(stats, queryLatencyStats{
			Name:   name,
			Count:  len(sorted),
			Errors: w.errors,
			P50:    sorted[last/2],
			P95:    sorted[last*95/100],
			Max:    sorted[last],
		})
	}
	slices.SortFunc(stats, func(a, b queryLatencyStats) int {
		if a.P95 != b.P95 {
			if a.P95 > b.P95 {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return stats
}

// instrumentedDBTX traces and times every sqlc call made through it.
type instrumentedDBTX struct {
	inner   queries.DBTX
	tracker *queryLatencyTracker
}

func newInstrumentedDBTX(inner queries.DBTX, tracker *queryLatencyTracker) queries.DBTX {
	if tracker == nil {
		return inner
	}
	return &instrumentedDBTX{inner: inner, tracker: tracker}
}

func (d *instrumentedDBTX) begin(ctx context.Context, query, operation string) (context.Context, func(error)) {
	name := queryName(query)
	ctx, span := observability.StartDBSpan(ctx, name, operation)
	start := time.Now()
	return ctx, func(err error) {
		d.tracker.observe(ctx, name, time.Since(start), err)
		span.RecordError(err)
		span.End()
	}
}

func (d *instrumentedDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, done := d.begin(ctx, query, "exec")
	result, err := d.inner.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (d *instrumentedDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	ctx, done := d.begin(ctx, query, "prepare")
	stmt, err := d.inner.PrepareContext(ctx, query)
	done(err)
	return stmt, err
}

func (d *instrumentedDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, done := d.begin(ctx, query, "query")
	rows, err := d.inner.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

// QueryRowContext defers its error to Scan, so only timing is recorded.
func (d *instrumentedDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, done := d.begin(ctx, query, "query_row")
	row := d.inner.QueryRowContext(ctx, query, args...)
	done(nil)
	return row
}

// queryName reads the sqlc "-- name: X :kind" header.
func queryName(query string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	rest, ok := strings.CutPrefix(strings.TrimSpace(first), "-- name:")
	if !ok {
		return "unknown"
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[0]
}
