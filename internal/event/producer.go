package event

import (
	"context"
	"fmt"
	"time"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/pkg/kafka"
	"github.com/mwynn/storefront/pkg/logger"
)

// Kafka topics.
const (
	TopicUserRegistered     = "user.registered"
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

const source = "storefront-api"

// Publisher emits domain events. Publish failures are the caller's to log;
// they must never fail the request that produced them.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *domain.Order, previousStatus string) error
}

// UserRegisteredData is the payload of a user.registered event.
type UserRegisteredData struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
}

// OrderCreatedData is the payload of an order.created event.
type OrderCreatedData struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	TotalPrice int64  `json:"total_price"`
	ItemCount  int    `json:"item_count"`
}

// OrderStatusChangedData is the payload of an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}

// KafkaPublisher publishes domain events to Kafka.
type KafkaPublisher struct {
	producer *kafka.Producer
}

// NewKafkaPublisher creates a publisher backed by the given producer.
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		At:     user.CreatedAt,
	}
	return p.publish(ctx, TopicUserRegistered, "user.registered", user.ID.Hex(), "user", data)
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:    order.ID.Hex(),
		UserID:     order.UserID.Hex(),
		TotalPrice: order.TotalPrice,
		ItemCount:  len(order.Items),
	}
	return p.publish(ctx, TopicOrderCreated, "order.created", order.ID.Hex(), "order", data)
}

func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, previousStatus string) error {
	data := OrderStatusChangedData{
		OrderID:        order.ID.Hex(),
		UserID:         order.UserID.Hex(),
		PreviousStatus: previousStatus,
		NewStatus:      order.Status,
	}
	return p.publish(ctx, TopicOrderStatusChanged, "order.status_changed", order.ID.Hex(), "order", data)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	evt, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	return p.producer.Publish(ctx, topic, evt)
}
