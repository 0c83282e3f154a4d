package domain

import (
	"context"
	"time"
)

// RecordRepository is the durable store contract. The store is the
// source of truth for record lifetime; implementations must classify
// failures using the error types in this package.
type RecordRepository interface {
	// Insert persists a new record. Any store failure, including a
	// duplicate identifier, is reported as a *PersistenceError.
	Insert(ctx context.Context, rec *Record) error

	// FindLive returns the record under id if it is live at the given
	// instant. Expired and absent records both yield *NotFoundError.
	FindLive(ctx context.Context, id string, now time.Time) (*Record, error)

	// Update merges the supplied fields into the record that is live at
	// the given instant. A nil field is left untouched. Matching no
	// live record is a store failure (*PersistenceError), not a
	// not-found condition.
	Update(ctx context.Context, id string, user *string, expire *int64, now time.Time) error

	// Delete permanently removes the record that is live at the given
	// instant. An absent or already-expired record yields
	// *NotFoundError.
	Delete(ctx context.Context, id string, now time.Time) error
}
