package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// DefaultGhostName is the display name given to users first seen over chat
const DefaultGhostName = "New User"

// UserUsecase resolves chat addresses to acting identities
type UserUsecase struct {
	userRepo    repo.UserRepo
	collabRepo  repo.CollaborationRepo
	defaultName string
	logger      *zap.Logger
	now         func() time.Time
}

// NewUserUsecase creates a new user usecase
func NewUserUsecase(userRepo repo.UserRepo, collabRepo repo.CollaborationRepo, defaultName string, logger *zap.Logger) *UserUsecase {
	if defaultName == "" {
		defaultName = DefaultGhostName
	}
	return &UserUsecase{
		userRepo:    userRepo,
		collabRepo:  collabRepo,
		defaultName: defaultName,
		logger:      logger.Named("users"),
		now:         time.Now,
	}
}

// Resolve returns the acting identity for a phone number.
//
// Order: a linked account wins; then an active collaboration (acting inside the
// inviter's scope under the collaborator's own label); then the oldest ghost
// record; otherwise a new ghost record is created.
func (uc *UserUsecase) Resolve(ctx context.Context, phone string) (domain.UserContext, error) {
	users, err := uc.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return domain.UserContext{}, fmt.Errorf("find users by phone: %w", err)
	}

	for _, u := range users {
		if !u.IsGhost() {
			return contextFor(u, phone), nil
		}
	}

	collabs, err := uc.collabRepo.FindActiveByInviteePhone(ctx, phone)
	if err != nil {
		return domain.UserContext{}, fmt.Errorf("find collaborations: %w", err)
	}
	for _, c := range collabs {
		inviter, err := uc.userRepo.GetByID(ctx, c.InviterID)
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("collaboration points at missing inviter",
				zap.String("collaboration", c.ID),
				zap.String("inviter", c.InviterID))
			continue
		}
		if err != nil {
			return domain.UserContext{}, fmt.Errorf("get inviter: %w", err)
		}
		return domain.UserContext{
			ActingID:       inviter.ID,
			DisplayName:    c.Label(),
			Address:        phone,
			IsCollaborator: true,
		}, nil
	}

	if len(users) > 0 {
		return contextFor(users[0], phone), nil
	}

	ghost := &domain.User{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		DisplayName: uc.defaultName,
		CreatedAt:   uc.now(),
	}
	if err := uc.userRepo.Create(ctx, ghost); err != nil {
		return domain.UserContext{}, fmt.Errorf("create ghost user: %w", err)
	}
	uc.logger.Info("created ghost user", zap.String("id", ghost.ID), zap.String("phone", phone))
	return contextFor(ghost, phone), nil
}

func contextFor(u *domain.User, phone string) domain.UserContext {
	return domain.UserContext{
		ActingID:    u.ID,
		DisplayName: u.DisplayName,
		Address:     phone,
	}
}

// LinkAccount claims a ghost record for an authenticated account
func (uc *UserUsecase) LinkAccount(ctx context.Context, userID, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id", domain.ErrMissingArgument)
	}
	if err := uc.userRepo.LinkAccount(ctx, userID, accountID); err != nil {
		return fmt.Errorf("link account: %w", err)
	}
	uc.logger.Info("linked account", zap.String("user", userID))
	return nil
}

// AddCollaborator invites a phone number to act inside the inviter's scope
func (uc *UserUsecase) AddCollaborator(ctx context.Context, inviterID, phone, email, name string) (*domain.Collaboration, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("%w: phone", domain.ErrMissingArgument)
	}
	if _, err := uc.userRepo.GetByID(ctx, inviterID); err != nil {
		return nil, fmt.Errorf("get inviter: %w", err)
	}

	collab := &domain.Collaboration{
		ID:           uuid.NewString(),
		InviterID:    inviterID,
		InviteePhone: phone,
		InviteeEmail: email,
		InviteeName:  name,
		Active:       true,
		CreatedAt:    uc.now(),
	}
	if err := uc.collabRepo.Create(ctx, collab); err != nil {
		return nil, fmt.Errorf("create collaboration: %w", err)
	}
	return collab, nil
}

// Contacts lists every known chat address once, users first then collaborators
func (uc *UserUsecase) Contacts(ctx context.Context) ([]string, error) {
	users, err := uc.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	collabs, err := uc.collabRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collaborations: %w", err)
	}

	seen := make(map[string]bool)
	var contacts []string
	add := func(addr string) {
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		contacts = append(contacts, addr)
	}
	for _, u := range users {
		add(u.PhoneNumber)
	}
	for _, c := range collabs {
		add(c.InviteePhone)
	}
	return contacts, nil
}
