// Package seen tracks which candidates each viewer has already been shown.
package seen

import (
	"context"
	"errors"
)

// ErrNoViewer is returned when recording for an empty viewer id.
var ErrNoViewer = errors.New("seen: viewer id required")

// Store records and returns per-viewer seen sets.
type Store interface {
	// Seen returns the ids viewerID has seen. Unknown viewers get an empty set.
	Seen(ctx context.Context, viewerID string) (map[string]struct{}, error)
	// Record marks ids as seen by viewerID.
	Record(ctx context.Context, viewerID string, ids ...string) error
}
