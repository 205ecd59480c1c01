package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// ActionEvent is the message body published for each household action
type ActionEvent struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	ActingID   string         `json:"acting_id"`
	Actor      string         `json:"actor"`
	Address    string         `json:"address"`
	Args       map[string]any `json:"args"`
	Message    string         `json:"message,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewActionEvent builds the event published for one action
func NewActionEvent(actor domain.UserContext, action domain.Action, at time.Time) ActionEvent {
	return ActionEvent{
		ID:         uuid.NewString(),
		Kind:       string(action.Kind),
		ActingID:   actor.ActingID,
		Actor:      actor.DisplayName,
		Address:    actor.Address,
		Args:       action.Args,
		Message:    action.Result.Message,
		OccurredAt: at,
	}
}

// RoutingKey is the topic routing key of an action, e.g. hearth.action.add-shopping-item
func RoutingKey(kind domain.ToolKind) string {
	return "hearth.action." + string(kind)
}

// amqpPublisher publishes action events to a topic exchange
type amqpPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger
}

// NewAMQPPublisher dials the broker and declares the topic exchange
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (repo.ActionPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &amqpPublisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger.Named("publisher"),
	}, nil
}

// Publish sends one persistent message per action
func (p *amqpPublisher) Publish(ctx context.Context, actor domain.UserContext, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to enable confirms: %w", err)
	}

	now := time.Now()
	for _, action := range actions {
		event := NewActionEvent(actor, action, now)
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}

		key := RoutingKey(action.Kind)
		confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, key, false, false,
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				MessageId:    event.ID,
				Timestamp:    now,
				Body:         body,
			})
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", key, err)
		}
		if ok, err := confirm.WaitContext(ctx); err != nil || !ok {
			return fmt.Errorf("broker did not confirm %s: %v", key, err)
		}
		p.logger.Info("published", zap.String("key", key), zap.String("exchange", p.exchange))
	}
	return nil
}

// Close closes the broker connection
func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}

// nopPublisher is used when no broker is configured
type nopPublisher struct{}

// NewNopPublisher creates a publisher that drops every event
func NewNopPublisher() repo.ActionPublisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, domain.UserContext, []domain.Action) error { return nil }

func (nopPublisher) Close() error { return nil }
