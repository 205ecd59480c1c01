package repo

import (
	"context"

	"github.com/hearth-home/hearth/internal/biz/domain"
)

// MessageRepo delivers outbound chat messages
type MessageRepo interface {
	// Send delivers body to a channel address (whatsapp:+1..., feishu:ou_...)
	Send(ctx context.Context, to, body string) error
}

// ActionPublisher emits household actions to downstream consumers
type ActionPublisher interface {
	Publish(ctx context.Context, actor domain.UserContext, actions []domain.Action) error
	Close() error
}
