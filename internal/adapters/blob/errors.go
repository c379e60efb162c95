// Package blob stores the serialized catalog snapshot as a single document.
package blob

import "errors"

// ErrSnapshotNotFound indicates no snapshot has been written yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")
