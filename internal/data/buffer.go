package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// bufferRepo implements the message buffer repository
type bufferRepo struct {
	db *sql.DB
}

// NewBufferRepo creates a new message buffer repository
func NewBufferRepo(db *sql.DB) repo.BufferRepo {
	return &bufferRepo{db: db}
}

// Transact reads the sender's record, applies fn and writes the result in one transaction
func (r *bufferRepo) Transact(ctx context.Context, senderID string, fn repo.BufferFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanBuffer(tx.QueryRowContext(ctx, `
		SELECT sender_id, pending, last_arrival, due_at
		FROM message_buffers
		WHERE sender_id = ?
	`, senderID))
	if err != nil && err != domain.ErrNotFound {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return tx.Commit()
	}

	pending := next.PendingMessages
	if pending == nil {
		pending = []string{}
	}
	encoded, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending messages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO message_buffers (sender_id, pending, last_arrival, due_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sender_id) DO UPDATE SET
			pending = excluded.pending,
			last_arrival = excluded.last_arrival,
			due_at = excluded.due_at
	`, senderID, string(encoded), next.LastArrival.UnixMilli(), next.DueAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save buffer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit buffer: %w", err)
	}
	return nil
}

// Get gets a buffer by sender
func (r *bufferRepo) Get(ctx context.Context, senderID string) (*domain.MessageBuffer, error) {
	return scanBuffer(r.db.QueryRowContext(ctx, `
		SELECT sender_id, pending, last_arrival, due_at
		FROM message_buffers
		WHERE sender_id = ?
	`, senderID))
}

// ListDue lists buffers holding fragments whose due time has passed
func (r *bufferRepo) ListDue(ctx context.Context, before time.Time) ([]*domain.MessageBuffer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sender_id, pending, last_arrival, due_at
		FROM message_buffers
		WHERE due_at <= ? AND pending != '[]'
		ORDER BY due_at ASC
	`, before.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query due buffers: %w", err)
	}
	defer rows.Close()

	var buffers []*domain.MessageBuffer
	for rows.Next() {
		buf, err := scanBuffer(rows)
		if err != nil {
			return nil, err
		}
		buffers = append(buffers, buf)
	}
	return buffers, rows.Err()
}

// Summaries gets an overview of non-empty buffers
func (r *bufferRepo) Summaries(ctx context.Context) ([]*domain.BufferSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sender_id, pending, last_arrival, due_at
		FROM message_buffers
		WHERE pending != '[]'
		ORDER BY last_arrival DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query buffer summary: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.BufferSummary
	for rows.Next() {
		buf, err := scanBuffer(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &domain.BufferSummary{
			SenderID:     buf.SenderID,
			MessageCount: len(buf.PendingMessages),
			LastArrival:  buf.LastArrival,
			DueAt:        buf.DueAt,
		})
	}
	return summaries, rows.Err()
}

// PruneIdle deletes empty buffers that saw no traffic since before
func (r *bufferRepo) PruneIdle(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM message_buffers WHERE pending = '[]' AND last_arrival < ?
	`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune buffers: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuffer(row rowScanner) (*domain.MessageBuffer, error) {
	var (
		buf         domain.MessageBuffer
		pending     string
		lastArrival int64
		dueAt       int64
	)
	err := row.Scan(&buf.SenderID, &pending, &lastArrival, &dueAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan buffer: %w", err)
	}
	if err := json.Unmarshal([]byte(pending), &buf.PendingMessages); err != nil {
		return nil, fmt.Errorf("failed to decode pending messages: %w", err)
	}
	if buf.PendingMessages == nil {
		buf.PendingMessages = []string{}
	}
	buf.LastArrival = time.UnixMilli(lastArrival)
	buf.DueAt = time.UnixMilli(dueAt)
	return &buf, nil
}
