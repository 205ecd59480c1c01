package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// ========== Shopping Lists ==========

// listRepo implements the shopping list repository
type listRepo struct {
	db *sql.DB
}

// NewListRepo creates a new shopping list repository
func NewListRepo(db *sql.DB) repo.ListRepo {
	return &listRepo{db: db}
}

// FindByName gets the owner's list by exact name
func (r *listRepo) FindByName(ctx context.Context, ownerID, name string) (*domain.ShoppingList, error) {
	return r.getOne(ctx, `SELECT id, owner_id, name, created_at FROM shopping_lists WHERE owner_id = ? AND name = ?`, ownerID, name)
}

// GetByID gets a list by ID
func (r *listRepo) GetByID(ctx context.Context, id string) (*domain.ShoppingList, error) {
	return r.getOne(ctx, `SELECT id, owner_id, name, created_at FROM shopping_lists WHERE id = ?`, id)
}

func (r *listRepo) getOne(ctx context.Context, query string, args ...any) (*domain.ShoppingList, error) {
	var l domain.ShoppingList
	var createdAt int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&l.ID, &l.OwnerID, &l.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	l.CreatedAt = time.UnixMilli(createdAt)
	return &l, nil
}

// FindOrCreate inserts the list unless (owner_id, name) is taken, then reads back the stored row
func (r *listRepo) FindOrCreate(ctx context.Context, list *domain.ShoppingList) (*domain.ShoppingList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shopping_lists (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, name) DO NOTHING
	`, list.ID, list.OwnerID, list.Name, list.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	var stored domain.ShoppingList
	var createdAt int64
	err = tx.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at FROM shopping_lists WHERE owner_id = ? AND name = ?
	`, list.OwnerID, list.Name).Scan(&stored.ID, &stored.OwnerID, &stored.Name, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	stored.CreatedAt = time.UnixMilli(createdAt)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit list: %w", err)
	}
	return &stored, nil
}

// Delete deletes a list and its items
func (r *listRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete list items: %w", err)
	}
	return tx.Commit()
}

// ListByOwner lists the owner's lists by name
func (r *listRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.ShoppingList, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at FROM shopping_lists WHERE owner_id = ? ORDER BY name ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	var lists []*domain.ShoppingList
	for rows.Next() {
		var l domain.ShoppingList
		var createdAt int64
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		l.CreatedAt = time.UnixMilli(createdAt)
		lists = append(lists, &l)
	}
	return lists, rows.Err()
}

// ========== List Items ==========

// itemRepo implements the list item repository
type itemRepo struct {
	db *sql.DB
}

// NewItemRepo creates a new list item repository
func NewItemRepo(db *sql.DB) repo.ItemRepo {
	return &itemRepo{db: db}
}

const itemColumns = `id, list_id, name, is_bought, auto_added, added_by, added_at`

// FindUnbought gets an unbought item by exact name
func (r *itemRepo) FindUnbought(ctx context.Context, listID, name string) (*domain.ListItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM list_items
		WHERE list_id = ? AND name = ? AND is_bought = 0
		LIMIT 1
	`, listID, name)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return it, nil
}

// AddUnbought inserts the item unless an unbought item with the same name is in its list.
// The check and the insert are one statement.
func (r *itemRepo) AddUnbought(ctx context.Context, it *domain.ListItem) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO list_items (id, list_id, name, is_bought, auto_added, added_by, added_at)
		SELECT ?, ?, ?, 0, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM list_items WHERE list_id = ? AND name = ? AND is_bought = 0
		)
	`, it.ID, it.ListID, it.Name, it.AutoAdded, it.AddedBy, it.AddedAt.UnixMilli(), it.ListID, it.Name)
	if err != nil {
		return false, fmt.Errorf("failed to create item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create item: %w", err)
	}
	return n == 1, nil
}

// ListUnbought lists unbought items in insertion order
func (r *itemRepo) ListUnbought(ctx context.Context, listID string) ([]*domain.ListItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM list_items
		WHERE list_id = ? AND is_bought = 0
		ORDER BY seq ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*domain.ListItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkBought marks an item as bought
func (r *itemRepo) MarkBought(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE list_items SET is_bought = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark item bought: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanItem(row rowScanner) (*domain.ListItem, error) {
	var it domain.ListItem
	var addedAt int64
	if err := row.Scan(&it.ID, &it.ListID, &it.Name, &it.IsBought, &it.AutoAdded, &it.AddedBy, &addedAt); err != nil {
		return nil, err
	}
	it.AddedAt = time.UnixMilli(addedAt)
	return &it, nil
}

// ========== Pantry ==========

// pantryRepo implements the pantry repository
type pantryRepo struct {
	db *sql.DB
}

// NewPantryRepo creates a new pantry repository
func NewPantryRepo(db *sql.DB) repo.PantryRepo {
	return &pantryRepo{db: db}
}

// SetStatus overwrites an item's status, creating the item if needed.
// Returns the previous status ("" when created).
func (r *pantryRepo) SetStatus(ctx context.Context, item string, status domain.PantryStatus, updatedBy string, at time.Time) (domain.PantryStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var previous string
	err = tx.QueryRowContext(ctx, `SELECT status FROM pantry_items WHERE item = ?`, item).Scan(&previous)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pantry_items (id, item, status, updated_by, updated_at) VALUES (?, ?, ?, ?, ?)
		`, uuid.NewString(), item, string(status), updatedBy, at.UnixMilli())
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE pantry_items SET status = ?, updated_by = ?, updated_at = ? WHERE item = ?
		`, string(status), updatedBy, at.UnixMilli(), item)
	}
	if err != nil {
		return "", fmt.Errorf("failed to set pantry status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit pantry status: %w", err)
	}
	return domain.PantryStatus(previous), nil
}

// Get gets a pantry item by exact name
func (r *pantryRepo) Get(ctx context.Context, item string) (*domain.PantryItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, item, status, updated_by, updated_at FROM pantry_items WHERE item = ?
	`, item)
	p, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pantry item: %w", err)
	}
	return p, nil
}

// ListAll lists the pantry by item name
func (r *pantryRepo) ListAll(ctx context.Context) ([]*domain.PantryItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item, status, updated_by, updated_at FROM pantry_items ORDER BY item ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pantry: %w", err)
	}
	defer rows.Close()

	var items []*domain.PantryItem
	for rows.Next() {
		p, err := scanPantryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pantry item: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func scanPantryItem(row rowScanner) (*domain.PantryItem, error) {
	var p domain.PantryItem
	var status string
	var updatedAt int64
	if err := row.Scan(&p.ID, &p.Item, &status, &p.UpdatedBy, &updatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PantryStatus(status)
	p.UpdatedAt = time.UnixMilli(updatedAt)
	return &p, nil
}

// ========== Classification Log ==========

// classificationRepo implements the classification log repository
type classificationRepo struct {
	db *sql.DB
}

// NewClassificationRepo creates a new classification log repository
func NewClassificationRepo(db *sql.DB) repo.ClassificationRepo {
	return &classificationRepo{db: db}
}

// Get gets the entry for an owner and normalized item name
func (r *classificationRepo) Get(ctx context.Context, ownerID, itemKey string) (*domain.ClassificationEntry, error) {
	var e domain.ClassificationEntry
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT owner_id, item_key, list_id, list_name, updated_at
		FROM classification_log
		WHERE owner_id = ? AND item_key = ?
	`, ownerID, itemKey).Scan(&e.OwnerID, &e.ItemKey, &e.ListID, &e.ListName, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	e.UpdatedAt = time.UnixMilli(updatedAt)
	return &e, nil
}

// Upsert records the list an item was last added to
func (r *classificationRepo) Upsert(ctx context.Context, e *domain.ClassificationEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classification_log (owner_id, item_key, list_id, list_name, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, item_key) DO UPDATE SET
			list_id = excluded.list_id,
			list_name = excluded.list_name,
			updated_at = excluded.updated_at
	`, e.OwnerID, e.ItemKey, e.ListID, e.ListName, e.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert classification: %w", err)
	}
	return nil
}

// ========== Schedule ==========

// scheduleRepo implements the family schedule repository
type scheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo creates a new schedule repository
func NewScheduleRepo(db *sql.DB) repo.ScheduleRepo {
	return &scheduleRepo{db: db}
}

// Create creates an event
func (r *scheduleRepo) Create(ctx context.Context, e *domain.ScheduleEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_events (id, title, date, type, recurrence_rule, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Title, e.Date.UnixMilli(), string(e.Type), e.RecurrenceRule, e.CreatedBy, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// ListBetween lists events in [from, to] by date
func (r *scheduleRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.ScheduleEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, date, type, recurrence_rule, created_by, created_at
		FROM schedule_events
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ScheduleEvent
	for rows.Next() {
		var e domain.ScheduleEvent
		var eventType string
		var date, createdAt int64
		if err := rows.Scan(&e.ID, &e.Title, &date, &eventType, &e.RecurrenceRule, &e.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = domain.EventType(eventType)
		e.Date = time.UnixMilli(date).UTC()
		e.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, &e)
	}
	return events, rows.Err()
}
