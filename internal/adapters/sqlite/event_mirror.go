package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/fr0stylo/venuecal/internal/app/domain"
	"github.com/fr0stylo/venuecal/internal/app/ports"
	"github.com/fr0stylo/venuecal/internal/db/queries"
)

var _ ports.EventMirror = (*EventMirror)(nil)

// EventMirror keeps the events table in the same order as the catalog.
type EventMirror struct {
	db  eventDatabase
	now func() time.Time
}

// NewEventMirror wraps an opened database.
func NewEventMirror(database eventDatabase) *EventMirror {
	return &EventMirror{db: database, now: time.Now}
}

// ReplaceAll rewrites the whole table in one transaction.
func (m *EventMirror) ReplaceAll(ctx context.Context, events []domain.Event) error {
	rows := make([]queries.InsertEventParams, 0, len(events))
	for index, event := range events {
		rows = append(rows, queries.InsertEventParams{
			ID:          event.ID,
			Position:    int64(index),
			Name:        event.Name,
			EventDate:   string(event.Date),
			EventTime:   string(event.Time),
			Organizer:   event.Organizer,
			Image:       event.Image,
			TicketsUrl:  event.TicketsURL,
			Description: event.Description,
		})
	}
	if err := m.db.ReplaceEvents(ctx, rows, m.now()); err != nil {
		return fmt.Errorf("replace mirrored events: %w", err)
	}
	return nil
}

// ListAll reads the table back in stored order.
func (m *EventMirror) ListAll(ctx context.Context) ([]domain.Event, error) {
	rows, err := m.db.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mirrored events: %w", err)
	}
	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, domain.Event{
			ID:          row.ID,
			Name:        row.Name,
			Date:        domain.Date(row.EventDate),
			Time:        domain.Clock(row.EventTime),
			Organizer:   row.Organizer,
			Image:       row.Image,
			TicketsURL:  row.TicketsUrl,
			Description: row.Description,
		})
	}
	return events, nil
}
