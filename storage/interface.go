package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cyberpaste/cyberpaste/models"
)

// ErrNotFound is returned by IncrementViews when the paste vanished between
// the caller's liveness check and the increment.
var ErrNotFound = errors.New("paste not found")

// ErrDuplicateID is returned by Insert when the id is already taken. Given a
// collision-resistant generator this indicates a generator failure, so it is
// never handled by silently overwriting.
var ErrDuplicateID = errors.New("paste id already exists")

// PasteStore defines the interface for paste storage backends. The store is
// a dumb keyed record holder: it never filters by expiry on Get, that is the
// lifecycle service's job. All operations may be called concurrently.
type PasteStore interface {
	// Insert saves a new paste with all its tabs atomically. Fails with
	// ErrDuplicateID if the id is already present.
	Insert(ctx context.Context, paste *models.Paste) error

	// Get retrieves a paste by id. Returns (nil, nil) when absent. No side
	// effects, no expiry filtering.
	Get(ctx context.Context, id string) (*models.Paste, error)

	// Exists checks if a paste exists by id.
	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes a paste. Deleting an absent id is a no-op, not an error.
	Delete(ctx context.Context, id string) error

	// IncrementViews atomically bumps the view counter and returns the new
	// count. Concurrent increments on one id must all be reflected. Returns
	// ErrNotFound when the record is absent.
	IncrementViews(ctx context.Context, id string) (int64, error)

	// CountAll returns the number of stored records, expired or not.
	CountAll(ctx context.Context) (int64, error)

	// ScanExpired returns the ids of records that are dead as of now.
	// Backends whose engine expires records natively may return nil.
	ScanExpired(ctx context.Context, now time.Time) ([]string, error)

	// Close closes the storage connection.
	Close() error
}
