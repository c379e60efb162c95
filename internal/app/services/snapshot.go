package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fr0stylo/venuecal/internal/app/domain"
)

// SnapshotVersion is the current snapshot document format.
const SnapshotVersion = 1

// SnapshotDocument is the blob representation of the whole catalog.
type SnapshotDocument struct {
	Version   int            `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Events    []domain.Event `json:"events"`
}

// EncodeSnapshot serializes events as the latest snapshot document.
func EncodeSnapshot(events []domain.Event, at time.Time) ([]byte, error) {
	if events == nil {
		events = []domain.Event{}
	}
	return json.Marshal(SnapshotDocument{
		Version:   SnapshotVersion,
		UpdatedAt: at.UTC(),
		Events:    events,
	})
}

// DecodeSnapshot parses a snapshot document. Unknown versions are rejected.
func DecodeSnapshot(raw []byte) (SnapshotDocument, error) {
	if len(raw) == 0 {
		return SnapshotDocument{}, errors.New("empty snapshot")
	}
	var doc SnapshotDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return SnapshotDocument{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != SnapshotVersion {
		return SnapshotDocument{}, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}
	return doc, nil
}
