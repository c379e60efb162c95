package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	"github.com/fr0stylo/venuecal/internal/app/ports"
)

const mirrorWriteTimeout = 30 * time.Second

// mirrorWriter copies the latest catalog to the relational mirror and the
// blob snapshot on a background goroutine. Pending lists coalesce: only the
// newest one is ever written.
type mirrorWriter struct {
	relational ports.EventMirror
	snapshots  ports.SnapshotStore
	logger     *slog.Logger
	now        func() time.Time
	writes     metric.Int64Counter

	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	mu      sync.Mutex
	closed  bool
	latest  []domain.Event
	version uint64
	written uint64
	waiters []mirrorWaiter

	accepted    atomic.Int64
	coalesced   atomic.Int64
	flushes     atomic.Int64
	flushErrors atomic.Int64
}

type mirrorWaiter struct {
	version uint64
	ch      chan struct{}
}

func newMirrorWriter(relational ports.EventMirror, snapshots ports.SnapshotStore, logger *slog.Logger, now func() time.Time) *mirrorWriter {
	meter := otel.Meter("github.com/fr0stylo/venuecal/internal/app/services")
	writes, _ := meter.Int64Counter("venuecal.mirror.writes")
	w := &mirrorWriter{
		relational: relational,
		snapshots:  snapshots,
		logger:     logger,
		now:        now,
		writes:     writes,
		signal:     make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	w.startOnce.Do(func() {
		go w.run()
	})
	return w
}

func (w *mirrorWriter) enabled() bool {
	return w.relational != nil || w.snapshots != nil
}

// enqueue records events as the newest state to mirror. It never blocks and
// drops the list once the writer is closed.
func (w *mirrorWriter) enqueue(events []domain.Event) {
	if !w.enabled() {
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("mirror_write_after_close", "events", len(events))
		return
	}
	w.latest = slices.Clone(events)
	w.version++
	w.mu.Unlock()
	w.accepted.Add(1)

	select {
	case w.signal <- struct{}{}:
	default:
		w.coalesced.Add(1)
	}
}

// drain blocks until everything enqueued so far has been written.
func (w *mirrorWriter) drain(ctx context.Context) error {
	w.mu.Lock()
	if w.written >= w.version {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, mirrorWaiter{version: w.version, ch: ch})
	w.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains pending writes and stops the worker.
func (w *mirrorWriter) close(ctx context.Context) error {
	err := w.drain(ctx)
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.stop)
	})
	select {
	case <-w.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (w *mirrorWriter) run() {
	defer close(w.done)
	statsTicker := time.NewTicker(time.Minute)
	defer statsTicker.Stop()

	for {
		select {
		case <-w.signal:
			w.flush()
		case <-statsTicker.C:
			w.logger.Info("mirror_writer_stats",
				"accepted", w.accepted.Load(),
				"coalesced", w.coalesced.Load(),
				"flushes", w.flushes.Load(),
				"flush_errors", w.flushErrors.Load(),
			)
		case <-w.stop:
			w.flush()
			return
		}
	}
}

func (w *mirrorWriter) flush() {
	w.mu.Lock()
	if w.written >= w.version {
		w.mu.Unlock()
		return
	}
	events := w.latest
	version := w.version
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
	defer cancel()

	// Each backend is written independently; one failing never skips the other.
	if w.relational != nil {
		w.record(ctx, "relational", w.relational.ReplaceAll(ctx, events), len(events))
	}
	if w.snapshots != nil {
		doc, err := EncodeSnapshot(events, w.now())
		if err == nil {
			err = w.snapshots.Write(ctx, doc)
		}
		w.record(ctx, "snapshot", err, len(events))
	}
	w.flushes.Add(1)

	w.mu.Lock()
	w.written = version
	remaining := w.waiters[:0]
	for _, waiter := range w.waiters {
		if waiter.version <= version {
			close(waiter.ch)
			continue
		}
		remaining = append(remaining, waiter)
	}
	w.waiters = remaining
	w.mu.Unlock()
}

func (w *mirrorWriter) record(ctx context.Context, backend string, err error, count int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		w.flushErrors.Add(1)
		w.logger.Error("mirror_write_failed", "backend", backend, "events", count, "error", err)
	}
	if w.writes != nil {
		w.writes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("outcome", outcome),
		))
	}
}
