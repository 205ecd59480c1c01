package repo

import (
	"context"
	"time"

	"github.com/hearth-home/hearth/internal/biz/domain"
)

// ListRepo is the shopping list repository interface
type ListRepo interface {
	// FindByName returns the owner's list with this exact name or domain.ErrNotFound
	FindByName(ctx context.Context, ownerID, name string) (*domain.ShoppingList, error)

	// GetByID returns the list or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (*domain.ShoppingList, error)

	// FindOrCreate stores list unless the owner already has a list with that name,
	// and returns the stored list either way
	FindOrCreate(ctx context.Context, list *domain.ShoppingList) (*domain.ShoppingList, error)

	// Delete removes a list and its items
	Delete(ctx context.Context, id string) error

	ListByOwner(ctx context.Context, ownerID string) ([]*domain.ShoppingList, error)
}

// ItemRepo is the shopping list item repository interface
type ItemRepo interface {
	// FindUnbought returns an unbought item with this exact name or domain.ErrNotFound
	FindUnbought(ctx context.Context, listID, name string) (*domain.ListItem, error)

	// AddUnbought inserts item unless its list already holds an unbought item
	// with the same exact name. Reports whether the item was inserted.
	AddUnbought(ctx context.Context, item *domain.ListItem) (bool, error)

	// ListUnbought lists a list's unbought items in insertion order
	ListUnbought(ctx context.Context, listID string) ([]*domain.ListItem, error)

	MarkBought(ctx context.Context, id string) error
}

// PantryRepo is the pantry repository interface
type PantryRepo interface {
	// SetStatus finds the item by exact name (or creates it) and overwrites its status.
	// It returns the status held before the write, "" for a new record.
	SetStatus(ctx context.Context, item string, status domain.PantryStatus, updatedBy string, at time.Time) (domain.PantryStatus, error)

	// Get returns the item or domain.ErrNotFound
	Get(ctx context.Context, item string) (*domain.PantryItem, error)

	ListAll(ctx context.Context) ([]*domain.PantryItem, error)
}

// ClassificationRepo stores the item-to-list log used by smart classification
type ClassificationRepo interface {
	// Get returns the entry for (ownerID, itemKey) or domain.ErrNotFound
	Get(ctx context.Context, ownerID, itemKey string) (*domain.ClassificationEntry, error)

	Upsert(ctx context.Context, entry *domain.ClassificationEntry) error
}

// ScheduleRepo is the family schedule repository interface
type ScheduleRepo interface {
	Create(ctx context.Context, event *domain.ScheduleEvent) error

	// ListBetween lists events with from <= date <= to, ordered by date
	ListBetween(ctx context.Context, from, to time.Time) ([]*domain.ScheduleEvent, error)
}
