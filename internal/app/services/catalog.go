package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	"github.com/fr0stylo/venuecal/internal/app/ports"
)

var (
	// ErrEventNotFound indicates no cached event has the requested id.
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidEvent indicates an event failed validation.
	ErrInvalidEvent = errors.New("invalid event")
)

const seedTimeout = 15 * time.Second

// SeedFunc loads the bundled fallback event set.
type SeedFunc func() ([]domain.Event, error)

// EventCatalog is the authoritative in-memory event set. Reads are served
// from memory only; every mutation is mirrored in the background.
type EventCatalog struct {
	relational ports.EventMirror
	snapshots  ports.SnapshotStore
	seed       SeedFunc
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	writer     *mirrorWriter

	seedOnce sync.Once
	mu       sync.RWMutex
	events   []domain.Event
}

// CatalogOption customizes an EventCatalog.
type CatalogOption func(*EventCatalog)

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *EventCatalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *EventCatalog) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides id assignment.
func WithIDGenerator(newID func() string) CatalogOption {
	return func(c *EventCatalog) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// NewEventCatalog builds a catalog. Any of relational, snapshots and seed may be nil.
func NewEventCatalog(relational ports.EventMirror, snapshots ports.SnapshotStore, seed SeedFunc, opts ...CatalogOption) *EventCatalog {
	c := &EventCatalog{
		relational: relational,
		snapshots:  snapshots,
		seed:       seed,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.writer = newMirrorWriter(relational, snapshots, c.logger, c.now)
	return c
}

// List returns every event ordered by date then time.
func (c *EventCatalog) List(ctx context.Context) []domain.Event {
	c.ensureSeeded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.events)
}

// Upcoming returns the events that are not over at now.
func (c *EventCatalog) Upcoming(ctx context.Context, now time.Time) []domain.Event {
	c.ensureSeeded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Event, 0, len(c.events))
	for _, e := range c.events {
		if !e.IsPast(now) {
			out = append(out, e)
		}
	}
	return out
}

// Get returns one cached event.
func (c *EventCatalog) Get(ctx context.Context, id string) (domain.Event, error) {
	c.ensureSeeded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.events, id); i >= 0 {
		return c.events[i], nil
	}
	return domain.Event{}, ErrEventNotFound
}

// Create assigns a fresh id, stores the event and schedules mirroring.
func (c *EventCatalog) Create(ctx context.Context, draft domain.Draft) (domain.Event, error) {
	c.ensureSeeded(ctx)
	event := draft.Materialize(c.newID())
	if err := domain.Validate(event); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	domain.SortEvents(c.events)
	c.enqueueLocked()
	c.mu.Unlock()
	return event, nil
}

// Update merges patch onto the cached event.
func (c *EventCatalog) Update(ctx context.Context, id string, patch domain.Patch) (domain.Event, error) {
	c.ensureSeeded(ctx)
	c.mu.Lock()
	i := indexOf(c.events, id)
	if i < 0 {
		c.mu.Unlock()
		return domain.Event{}, ErrEventNotFound
	}
	updated := c.events[i].Apply(patch)
	if err := domain.Validate(updated); err != nil {
		c.mu.Unlock()
		return domain.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	c.events[i] = updated
	domain.SortEvents(c.events)
	c.enqueueLocked()
	c.mu.Unlock()
	return updated, nil
}

// Delete removes the event and reports whether anything was removed.
func (c *EventCatalog) Delete(ctx context.Context, id string) bool {
	c.ensureSeeded(ctx)
	c.mu.Lock()
	i := indexOf(c.events, id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.events = slices.Delete(c.events, i, i+1)
	c.enqueueLocked()
	c.mu.Unlock()
	return true
}

// ReplaceAll swaps the whole set. Events without an id get a fresh one;
// duplicate ids and invalid events reject the whole call.
func (c *EventCatalog) ReplaceAll(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	c.ensureSeeded(ctx)
	next, err := c.normalize(events)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.events = next
	c.enqueueLocked()
	c.mu.Unlock()
	return slices.Clone(next), nil
}

// enqueueLocked hands the current list to the mirror writer. Callers hold
// c.mu so the writer sees lists in mutation order.
func (c *EventCatalog) enqueueLocked() {
	c.writer.enqueue(c.events)
}

func (c *EventCatalog) normalize(events []domain.Event) ([]domain.Event, error) {
	next := make([]domain.Event, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for i, e := range events {
		id := e.ID
		if id == "" {
			id = c.newID()
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q at position %d", ErrInvalidEvent, id, i)
		}
		seen[id] = struct{}{}
		event := e.Draft().Materialize(id)
		if err := domain.Validate(event); err != nil {
			return nil, fmt.Errorf("%w: position %d: %v", ErrInvalidEvent, i, err)
		}
		next = append(next, event)
	}
	domain.SortEvents(next)
	return next, nil
}

// Drain waits until every mutation so far has been mirrored.
func (c *EventCatalog) Drain(ctx context.Context) error {
	return c.writer.drain(ctx)
}

// Close drains pending mirror writes and stops the background writer.
func (c *EventCatalog) Close(ctx context.Context) error {
	return c.writer.close(ctx)
}

// ensureSeeded loads the initial set once: relational mirror, then blob
// snapshot, then the bundled seed. A failed or empty source falls through.
func (c *EventCatalog) ensureSeeded(ctx context.Context) {
	c.seedOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seedTimeout)
		defer cancel()

		events, source := c.loadInitial(ctx)
		next, err := c.normalize(events)
		if err != nil {
			c.logger.Error("catalog_seed_invalid", "source", source, "error", err)
			next = []domain.Event{}
		}
		c.mu.Lock()
		c.events = next
		c.mu.Unlock()
		c.logger.Info("Event catalog seeded", "source", source, "events", len(next))
	})
}

func (c *EventCatalog) loadInitial(ctx context.Context) ([]domain.Event, string) {
	if c.relational != nil {
		events, err := c.relational.ListAll(ctx)
		switch {
		case err != nil:
			c.logger.Warn("catalog_seed_relational_failed", "error", err)
		case len(events) > 0:
			return events, "relational"
		}
	}
	if c.snapshots != nil {
		raw, err := c.snapshots.Read(ctx)
		if err == nil {
			var doc SnapshotDocument
			doc, err = DecodeSnapshot(raw)
			if err == nil && len(doc.Events) > 0 {
				return doc.Events, "snapshot"
			}
		}
		if err != nil {
			c.logger.Warn("catalog_seed_snapshot_failed", "error", err)
		}
	}
	if c.seed != nil {
		events, err := c.seed()
		if err == nil {
			return events, "bundled"
		}
		c.logger.Error("catalog_seed_bundled_failed", "error", err)
	}
	return nil, "empty"
}

func indexOf(events []domain.Event, id string) int {
	return slices.IndexFunc(events, func(e domain.Event) bool { return e.ID == id })
}
