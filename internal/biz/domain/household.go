package domain

import (
	"strings"
	"time"
)

// DefaultListName is the list unqualified items land in
const DefaultListName = "General"

// ShoppingList is a named list owned by one acting user
type ShoppingList struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListItem is one entry of a shopping list
type ListItem struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	Name      string    `json:"name"`
	IsBought  bool      `json:"is_bought"`
	AutoAdded bool      `json:"auto_added"` // Added by pantry restock rather than by a person
	AddedBy   string    `json:"added_by"`
	AddedAt   time.Time `json:"added_at"`
}

// PantryStatus is the stock level of a pantry item
type PantryStatus string

const (
	PantryInStock  PantryStatus = "in-stock"
	PantryLow      PantryStatus = "low"
	PantryFinished PantryStatus = "finished"
)

// ParsePantryStatus accepts the canonical statuses and their common spellings
func ParsePantryStatus(s string) (PantryStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	switch key {
	case "in-stock", "instock", "stocked", "available":
		return PantryInStock, nil
	case "low", "running-low":
		return PantryLow, nil
	case "finished", "out", "out-of-stock", "empty", "done":
		return PantryFinished, nil
	default:
		return "", ErrInvalidStatus
	}
}

// PantryItem tracks the stock level of one item
type PantryItem struct {
	ID        string       `json:"id"`
	Item      string       `json:"item"`
	Status    PantryStatus `json:"status"`
	UpdatedBy string       `json:"updated_by"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// EventType distinguishes single and recurring schedule entries
type EventType string

const (
	EventOneTime   EventType = "one-time"
	EventRecurring EventType = "recurring"
)

// ScheduleEvent is an entry of the family schedule.
// Recurring events are stored as one occurrence; RecurrenceRule is informational.
type ScheduleEvent struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	Type           EventType `json:"type"`
	RecurrenceRule string    `json:"recurrence_rule,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// ClassificationEntry remembers which list an item name was last added to
type ClassificationEntry struct {
	OwnerID   string
	ItemKey   string // NormalizeItemName output
	ListID    string
	ListName  string
	UpdatedAt time.Time
}

// NormalizeItemName lowercases and collapses whitespace for classification keys
func NormalizeItemName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
