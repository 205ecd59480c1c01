package domain

import (
	"testing"
	"time"
)

func TestMessageBuffer_Decide_NoRecord(t *testing.T) {
	var buf *MessageBuffer
	if got := buf.Decide(time.Now(), DefaultDebounceConfig()); got != SettleNoRecord {
		t.Errorf("Expected no_record, got %s", got)
	}
}

func TestMessageBuffer_Decide_Superseded(t *testing.T) {
	cfg := DefaultDebounceConfig()
	now := time.Now()
	buf := &MessageBuffer{
		PendingMessages: []string{"add milk", "also eggs"},
		LastArrival:     now.Add(-2 * time.Second), // a newer fragment arrived mid-wait
	}

	if got := buf.Decide(now, cfg); got != SettleSuperseded {
		t.Errorf("Expected superseded, got %s", got)
	}
}

func TestMessageBuffer_Decide_WithinJitter(t *testing.T) {
	cfg := DefaultDebounceConfig()
	now := time.Now()
	buf := &MessageBuffer{
		PendingMessages: []string{"add milk"},
		LastArrival:     now.Add(-4600 * time.Millisecond),
	}

	if got := buf.Decide(now, cfg); got != SettleClaimed {
		t.Errorf("Expected claimed within jitter tolerance, got %s", got)
	}
}

func TestMessageBuffer_Decide_Empty(t *testing.T) {
	cfg := DefaultDebounceConfig()
	now := time.Now()
	buf := &MessageBuffer{LastArrival: now.Add(-10 * time.Second)}

	if got := buf.Decide(now, cfg); got != SettleEmpty {
		t.Errorf("Expected empty, got %s", got)
	}
}

func TestMessageBuffer_AppendConsolidateClear(t *testing.T) {
	cfg := DefaultDebounceConfig()
	now := time.Now()
	buf := &MessageBuffer{SenderID: "whatsapp:+1"}

	buf.Append("add milk", now, cfg)
	buf.Append("also eggs", now.Add(time.Second), cfg)

	if got := buf.Consolidate(); got != "add milk\nalso eggs" {
		t.Errorf("Unexpected consolidation: %q", got)
	}
	if !buf.DueAt.Equal(now.Add(time.Second + cfg.Window)) {
		t.Errorf("Expected due time to follow last arrival, got %v", buf.DueAt)
	}

	buf.Clear()
	if !buf.IsEmpty() {
		t.Error("Expected buffer to be empty after clear")
	}
	if buf.PendingMessages == nil {
		t.Error("Expected cleared slice to be non-nil")
	}
}

func TestDebounceConfig_Validate(t *testing.T) {
	if err := DefaultDebounceConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	bad := DebounceConfig{Window: time.Second, Jitter: 2 * time.Second}
	if err := bad.Validate(); err != ErrInvalidDebounce {
		t.Errorf("Expected ErrInvalidDebounce, got %v", err)
	}
}
