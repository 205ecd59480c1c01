package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hearth-home/hearth/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// Repositories contains all store-backed repositories
type Repositories struct {
	Buffer         repo.BufferRepo
	Users          repo.UserRepo
	Collaborations repo.CollaborationRepo
	Lists          repo.ListRepo
	Items          repo.ItemRepo
	Pantry         repo.PantryRepo
	Classification repo.ClassificationRepo
	Schedule       repo.ScheduleRepo

	db *sql.DB
}

// NewRepositories opens the household database and creates all repositories
func NewRepositories(dbPath string) (*Repositories, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Buffer:         NewBufferRepo(db),
		Users:          NewUserRepo(db),
		Collaborations: NewCollaborationRepo(db),
		Lists:          NewListRepo(db),
		Items:          NewItemRepo(db),
		Pantry:         NewPantryRepo(db),
		Classification: NewClassificationRepo(db),
		Schedule:       NewScheduleRepo(db),
		db:             db,
	}, nil
}

// Close closes the database connection
func (r *Repositories) Close() error {
	return r.db.Close()
}

// OpenDB opens (creating if needed) the SQLite database and applies the schema
func OpenDB(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serialises transactions, so every read-modify-write is atomic
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS message_buffers (
		sender_id TEXT PRIMARY KEY,
		pending TEXT NOT NULL DEFAULT '[]',
		last_arrival INTEGER NOT NULL,
		due_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_buffers_due ON message_buffers(due_at)`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		phone_number TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		linked_account_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone_number)`,

	`CREATE TABLE IF NOT EXISTS collaborations (
		id TEXT PRIMARY KEY,
		inviter_id TEXT NOT NULL,
		invitee_phone TEXT NOT NULL,
		invitee_email TEXT NOT NULL DEFAULT '',
		invitee_name TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_collaborations_invitee ON collaborations(invitee_phone, active)`,

	`CREATE TABLE IF NOT EXISTS shopping_lists (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(owner_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS list_items (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		list_id TEXT NOT NULL,
		name TEXT NOT NULL,
		is_bought INTEGER NOT NULL DEFAULT 0,
		auto_added INTEGER NOT NULL DEFAULT 0,
		added_by TEXT NOT NULL DEFAULT '',
		added_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_list ON list_items(list_id, is_bought)`,

	`CREATE TABLE IF NOT EXISTS pantry_items (
		id TEXT PRIMARY KEY,
		item TEXT UNIQUE NOT NULL,
		status TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS classification_log (
		owner_id TEXT NOT NULL,
		item_key TEXT NOT NULL,
		list_id TEXT NOT NULL,
		list_name TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (owner_id, item_key)
	)`,

	`CREATE TABLE IF NOT EXISTS schedule_events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		date INTEGER NOT NULL,
		type TEXT NOT NULL,
		recurrence_rule TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_date ON schedule_events(date)`,
}
