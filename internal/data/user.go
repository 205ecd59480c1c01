package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// userRepo implements the user repository
type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) repo.UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, phone_number, display_name, linked_account_id, created_at`

// FindByPhone gets all users with the given phone number, oldest first
func (r *userRepo) FindByPhone(ctx context.Context, phone string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE phone_number = ?
		ORDER BY created_at ASC, rowid ASC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

// GetByID gets a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// Create creates a user
func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, phone_number, display_name, linked_account_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.PhoneNumber, user.DisplayName, user.LinkedAccountID, user.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// LinkAccount sets the linked account of a user
func (r *userRepo) LinkAccount(ctx context.Context, id, accountID string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET linked_account_id = ? WHERE id = ?`, accountID, id)
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAll lists all users
func (r *userRepo) ListAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var createdAt int64
	if err := row.Scan(&u.ID, &u.PhoneNumber, &u.DisplayName, &u.LinkedAccountID, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(createdAt)
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// collaborationRepo implements the collaboration repository
type collaborationRepo struct {
	db *sql.DB
}

// NewCollaborationRepo creates a new collaboration repository
func NewCollaborationRepo(db *sql.DB) repo.CollaborationRepo {
	return &collaborationRepo{db: db}
}

const collaborationColumns = `id, inviter_id, invitee_phone, invitee_email, invitee_name, active, created_at`

// FindActiveByInviteePhone gets active collaborations for an invitee phone
func (r *collaborationRepo) FindActiveByInviteePhone(ctx context.Context, phone string) ([]*domain.Collaboration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+collaborationColumns+`
		FROM collaborations
		WHERE invitee_phone = ? AND active = 1
		ORDER BY created_at ASC, rowid ASC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborations: %w", err)
	}
	defer rows.Close()
	return scanCollaborations(rows)
}

// Create creates a collaboration
func (r *collaborationRepo) Create(ctx context.Context, c *domain.Collaboration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collaborations (id, inviter_id, invitee_phone, invitee_email, invitee_name, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.InviterID, c.InviteePhone, c.InviteeEmail, c.InviteeName, c.Active, c.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create collaboration: %w", err)
	}
	return nil
}

// ListActive lists all active collaborations
func (r *collaborationRepo) ListActive(ctx context.Context) ([]*domain.Collaboration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+collaborationColumns+`
		FROM collaborations
		WHERE active = 1
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborations: %w", err)
	}
	defer rows.Close()
	return scanCollaborations(rows)
}

func scanCollaborations(rows *sql.Rows) ([]*domain.Collaboration, error) {
	var collabs []*domain.Collaboration
	for rows.Next() {
		var c domain.Collaboration
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.InviterID, &c.InviteePhone, &c.InviteeEmail, &c.InviteeName, &c.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan collaboration: %w", err)
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		collabs = append(collabs, &c)
	}
	return collabs, rows.Err()
}
