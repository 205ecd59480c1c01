package repo

import (
	"context"
	"time"

	"github.com/hearth-home/hearth/internal/biz/domain"
)

// BufferFunc mutates a buffer inside a store transaction.
// current is nil when no record exists. Returning a nil buffer leaves the record untouched.
type BufferFunc func(current *domain.MessageBuffer) (*domain.MessageBuffer, error)

// BufferRepo is the message buffer repository interface
type BufferRepo interface {
	// Transact runs fn as one read-modify-write on the sender's record
	Transact(ctx context.Context, senderID string, fn BufferFunc) error

	// Get returns the sender's record or domain.ErrNotFound
	Get(ctx context.Context, senderID string) (*domain.MessageBuffer, error)

	// ListDue lists non-empty buffers whose due time is at or before the given time
	ListDue(ctx context.Context, before time.Time) ([]*domain.MessageBuffer, error)

	// Summaries lists buffers that still hold fragments
	Summaries(ctx context.Context) ([]*domain.BufferSummary, error)

	// PruneIdle deletes empty buffers whose last arrival is older than before
	PruneIdle(ctx context.Context, before time.Time) (int64, error)
}
