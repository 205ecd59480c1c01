package domain

import "strings"

// InboundMessage represents a chat message received from a channel webhook
type InboundMessage struct {
	From string // Sender address, e.g. whatsapp:+14155550100
	Body string
}

// Valid checks that both sender and body are present
func (m *InboundMessage) Valid() bool {
	return strings.TrimSpace(m.From) != "" && strings.TrimSpace(m.Body) != ""
}

// Channel returns the address prefix ("whatsapp", "feishu"), or "" if none
func Channel(address string) string {
	if i := strings.Index(address, ":"); i > 0 {
		return address[:i]
	}
	return ""
}
