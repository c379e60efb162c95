package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fr0stylo/venuecal/internal/db/queries"
)

// ListEvents returns every mirrored event ordered by list position.
func (c *Database) ListEvents(ctx context.Context) ([]queries.Event, error) {
	return c.Queries.ListEvents(ctx)
}

// CountEvents returns the number of mirrored events.
func (c *Database) CountEvents(ctx context.Context) (int64, error) {
	return c.Queries.CountEvents(ctx)
}

// ReplaceEvents swaps the whole events table in one transaction. Positions
// are rewritten from the slice order and every row gets the same sync stamp.
func (c *Database) ReplaceEvents(ctx context.Context, rows []queries.InsertEventParams, syncedAt time.Time) error {
	stamp := syncedAt.UTC().Format(time.RFC3339Nano)
	return c.WithTx(ctx, func(q *queries.Queries) error {
		if err := q.DeleteAllEvents(ctx); err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		for index, row := range rows {
			row.Position = int64(index)
			row.SyncedAt = stamp
			if err := q.InsertEvent(ctx, row); err != nil {
				return fmt.Errorf("insert event %q: %w", row.ID, err)
			}
		}
		return nil
	})
}

// WithTx runs a function within a transaction.
func (c *Database) WithTx(ctx context.Context, fn func(*queries.Queries) error) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(queries.New(newInstrumentedDBTX(tx, c.tracker))); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return rollbackErr
		}
		return err
	}
	return tx.Commit()
}
