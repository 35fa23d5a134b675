// Package flagstore tracks moderation flag state per subject. A subject is
// either flagged, with a reason and a timestamp, or not flagged at all; the
// partially-populated combinations cannot be stored.
package flagstore

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyReason = errors.New("flag reason must not be empty")

// State is the flag state of a flagged subject. Absence of a State (nil from
// Get) means the subject is not flagged.
type State struct {
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
}

type FlagStore interface {
	// Get returns nil when the subject is not flagged.
	Get(ctx context.Context, subjectID uint64) (*State, error)
	// Set flags the subject, replacing any prior state. An empty reason is
	// rejected with ErrEmptyReason.
	Set(ctx context.Context, subjectID uint64, reason string, at time.Time) error
	// Clear unflags the subject. Clearing an unflagged subject is a no-op.
	Clear(ctx context.Context, subjectID uint64) error
}
