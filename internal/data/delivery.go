package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
)

// ErrNoChannel is returned when no channel is registered for an address prefix
var ErrNoChannel = errors.New("no delivery channel for address")

// DeliveryRegistry routes outbound messages by address prefix (whatsapp:, feishu:)
type DeliveryRegistry struct {
	mu       sync.RWMutex
	channels map[string]channelSender
	logger   *zap.Logger
}

type channelSender interface {
	Send(ctx context.Context, to, body string) error
}

// NewDeliveryRegistry creates an empty delivery registry
func NewDeliveryRegistry(logger *zap.Logger) *DeliveryRegistry {
	return &DeliveryRegistry{
		channels: make(map[string]channelSender),
		logger:   logger.Named("delivery"),
	}
}

// Register binds a channel to an address prefix without the colon, e.g. "whatsapp"
func (d *DeliveryRegistry) Register(prefix string, sender channelSender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[prefix] = sender
}

// Channels lists registered prefixes
func (d *DeliveryRegistry) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers body through the channel matching the address prefix
func (d *DeliveryRegistry) Send(ctx context.Context, to, body string) error {
	prefix := domain.Channel(to)
	d.mu.RLock()
	sender, ok := d.channels[prefix]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w %q", ErrNoChannel, to)
	}

	if err := sender.Send(ctx, to, body); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}
