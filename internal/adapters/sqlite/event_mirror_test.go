package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	"github.com/fr0stylo/venuecal/internal/db"
	"github.com/fr0stylo/venuecal/internal/db/queries"
)

func newMirror(t *testing.T) *EventMirror {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "mirror"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return NewEventMirror(database)
}

func TestEventMirrorRoundTripKeepsOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mirror := newMirror(t)
	events := []domain.Event{
		{ID: "1", Name: "Early show", Date: "2025-03-01", Time: "18:00", Organizer: "House", TicketsURL: "https://tickets.example.com/1"},
		{ID: "2", Name: "Late show", Date: "2025-03-01", Time: "22:00", Image: "/uploads/x.png"},
		{ID: "3", Name: "All day", Date: "2025-03-01", Description: "Bring friends.\n\nAll ages."},
	}

	if err := mirror.ReplaceAll(ctx, events); err != nil {
		t.Fatalf("replace all: %v", err)
	}
	got, err := mirror.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("unexpected count: got=%d want=%d", len(got), len(events))
	}
	for index := range events {
		if got[index] != events[index] {
			t.Fatalf("unexpected event at %d: got=%+v want=%+v", index, got[index], events[index])
		}
	}
}

func TestEventMirrorEmptyReplaceClearsTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mirror := newMirror(t)
	if err := mirror.ReplaceAll(ctx, []domain.Event{{ID: "1", Name: "Gone", Date: "2025-01-01"}}); err != nil {
		t.Fatalf("replace all: %v", err)
	}
	if err := mirror.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err := mirror.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty table, got %+v", got)
	}
}

type failingDatabase struct{}

func (failingDatabase) ListEvents(context.Context) ([]queries.Event, error) {
	return nil, errors.New("disk I/O error")
}

func (failingDatabase) ReplaceEvents(context.Context, []queries.InsertEventParams, time.Time) error {
	return errors.New("database is locked")
}

func TestEventMirrorWrapsDatabaseErrors(t *testing.T) {
	t.Parallel()

	mirror := NewEventMirror(failingDatabase{})
	if err := mirror.ReplaceAll(context.Background(), nil); err == nil {
		t.Fatal("expected replace error")
	}
	if _, err := mirror.ListAll(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}
