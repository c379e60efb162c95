package ports

import (
	"context"

	"github.com/fr0stylo/venuecal/internal/app/domain"
)

// EventMirror is the relational copy of the catalog. It only ever replaces
// the whole table or reads it back in order.
type EventMirror interface {
	ReplaceAll(ctx context.Context, events []domain.Event) error
	ListAll(ctx context.Context) ([]domain.Event, error)
}

// SnapshotStore keeps the latest serialized catalog document.
type SnapshotStore interface {
	Write(ctx context.Context, doc []byte) error
	Read(ctx context.Context) ([]byte, error)
}

// ImageUploader materializes image bytes and returns a stable reference
// usable as an event image.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}
