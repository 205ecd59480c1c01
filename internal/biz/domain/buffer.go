package domain

import (
	"strings"
	"time"
)

// MessageBuffer holds the pending chat fragments of one sender
type MessageBuffer struct {
	SenderID        string
	PendingMessages []string
	LastArrival     time.Time // Arrival time of the most recent fragment
	DueAt           time.Time // When the burst is expected to settle
}

// DebounceConfig represents debounce configuration (value object)
type DebounceConfig struct {
	Window time.Duration // Quiet period after the last fragment
	Jitter time.Duration // Tolerance for timer drift when re-checking
}

// DefaultDebounceConfig returns the default debounce configuration
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Window: 5 * time.Second,
		Jitter: 500 * time.Millisecond,
	}
}

// Validate checks that the jitter tolerance fits inside the window
func (c DebounceConfig) Validate() error {
	if c.Window <= 0 {
		return ErrInvalidDebounce
	}
	if c.Jitter < 0 || c.Jitter >= c.Window {
		return ErrInvalidDebounce
	}
	return nil
}

// SettleOutcome is the result of a settle check
type SettleOutcome string

const (
	SettleClaimed    SettleOutcome = "claimed"
	SettleNoRecord   SettleOutcome = "no_record"
	SettleSuperseded SettleOutcome = "superseded"
	SettleEmpty      SettleOutcome = "empty"
)

// Append adds a fragment and bumps the arrival time
func (b *MessageBuffer) Append(text string, now time.Time, cfg DebounceConfig) {
	b.PendingMessages = append(b.PendingMessages, text)
	b.LastArrival = now
	b.DueAt = now.Add(cfg.Window)
}

// Decide determines whether a settle check running at now may claim the buffer.
// A nil buffer means the record does not exist.
func (b *MessageBuffer) Decide(now time.Time, cfg DebounceConfig) SettleOutcome {
	if b == nil {
		return SettleNoRecord
	}
	if now.Sub(b.LastArrival) < cfg.Window-cfg.Jitter {
		return SettleSuperseded
	}
	if len(b.PendingMessages) == 0 {
		return SettleEmpty
	}
	return SettleClaimed
}

// Consolidate joins the pending fragments in arrival order
func (b *MessageBuffer) Consolidate() string {
	return strings.Join(b.PendingMessages, "\n")
}

// Clear empties the pending fragments but keeps the record
func (b *MessageBuffer) Clear() {
	b.PendingMessages = []string{}
}

// IsEmpty checks if nothing is pending
func (b *MessageBuffer) IsEmpty() bool {
	return len(b.PendingMessages) == 0
}

// BufferSummary represents a buffer overview
type BufferSummary struct {
	SenderID     string    `json:"sender_id"`
	MessageCount int       `json:"message_count"`
	LastArrival  time.Time `json:"last_arrival"`
	DueAt        time.Time `json:"due_at"`
}
