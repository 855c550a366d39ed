package store

import (
	"context"

	"github.com/gilbertyin/Jurni/internal/domain"
)

// VideoStore is the contract against the persisted video record store.
// It is the system of record: every status transition is written through
// immediately, never cached in process.
type VideoStore interface {
	// Create inserts a new record. The record's status must be queued.
	Create(ctx context.Context, video *domain.Video) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id domain.VideoID) (*domain.Video, error)

	// List returns records, optionally filtered by status, newest first.
	List(ctx context.Context, status *domain.Status, limit, offset int) ([]*domain.Video, error)

	// SetStatus writes a lifecycle transition. Illegal transitions fail
	// with ErrInvalidTransition.
	SetStatus(ctx context.Context, id domain.VideoID, status domain.Status) error

	// MarkFailed transitions the record to failed and records the reason.
	MarkFailed(ctx context.Context, id domain.VideoID, reason string) error

	// PersistResults writes the extracted metadata, analysis blob, and
	// coordinates in a single update.
	PersistResults(ctx context.Context, id domain.VideoID, md domain.Metadata, analysis domain.VenueAnalysis, coords domain.Coordinates) error
}
