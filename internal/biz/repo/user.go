package repo

import (
	"context"

	"github.com/hearth-home/hearth/internal/biz/domain"
)

// UserRepo is the user record repository interface
type UserRepo interface {
	// FindByPhone returns every record with this address, oldest first
	FindByPhone(ctx context.Context, phone string) ([]*domain.User, error)

	// GetByID returns the user or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (*domain.User, error)

	Create(ctx context.Context, user *domain.User) error

	// LinkAccount attaches an authenticated account to an existing record
	LinkAccount(ctx context.Context, id, accountID string) error

	ListAll(ctx context.Context) ([]*domain.User, error)
}

// CollaborationRepo is the collaboration repository interface
type CollaborationRepo interface {
	// FindActiveByInviteePhone returns active collaborations for an invitee, oldest first
	FindActiveByInviteePhone(ctx context.Context, phone string) ([]*domain.Collaboration, error)

	Create(ctx context.Context, collab *domain.Collaboration) error

	ListActive(ctx context.Context) ([]*domain.Collaboration, error)
}
