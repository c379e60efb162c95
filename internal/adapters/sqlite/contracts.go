package sqlite

import (
	"context"
	"time"

	"github.com/fr0stylo/venuecal/internal/db/queries"
)

type eventDatabase interface {
	ListEvents(ctx context.Context) ([]queries.Event, error)
	ReplaceEvents(ctx context.Context, rows []queries.InsertEventParams, syncedAt time.Time) error
}
