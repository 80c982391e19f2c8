package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order status constants. The lifecycle moves strictly forward:
// processing -> shipped -> delivered.
const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
)

// Order represents a customer order.
type Order struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"user_id" bson:"user_id"`
	ShippingInfo  ShippingInfo       `json:"shipping_info" bson:"shipping_info"`
	Items         []OrderItem        `json:"order_items" bson:"order_items"`
	PaymentInfo   PaymentInfo        `json:"payment_info" bson:"payment_info"`
	PaidAt        time.Time          `json:"paid_at" bson:"paid_at"`
	ItemsPrice    int64              `json:"items_price" bson:"items_price"`
	TaxPrice      int64              `json:"tax_price" bson:"tax_price"`
	ShippingPrice int64              `json:"shipping_price" bson:"shipping_price"`
	TotalPrice    int64              `json:"total_price" bson:"total_price"`
	Status        string             `json:"order_status" bson:"order_status"`
	DeliveredAt   *time.Time         `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// ShippingInfo is the delivery address for an order.
type ShippingInfo struct {
	Address string `json:"address" bson:"address"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Country string `json:"country" bson:"country"`
	PinCode string `json:"pin_code" bson:"pin_code"`
	PhoneNo string `json:"phone_no" bson:"phone_no"`
}

// OrderItem is a snapshot of a product line at purchase time.
type OrderItem struct {
	ProductID primitive.ObjectID `json:"product_id" bson:"product_id"`
	Name      string             `json:"name" bson:"name"`
	Price     int64              `json:"price" bson:"price"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	Image     string             `json:"image" bson:"image"`
}

// PaymentInfo references the upstream payment record.
type PaymentInfo struct {
	ID     string `json:"id" bson:"id"`
	Status string `json:"status" bson:"status"`
}

// ValidOrderStatuses returns all valid order statuses.
func ValidOrderStatuses() []string {
	return []string{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered}
}

// IsValidOrderStatus checks if a status string is valid.
func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// statusRank orders the lifecycle stages. Transitions must strictly increase
// in rank, which makes every stage (and its side effects, like the stock
// decrement on shipping) reachable at most once per order.
var statusRank = map[string]int{
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// CanTransitionTo checks if the order can move to the target status. Backward
// moves and same-status repeats are rejected, and delivered is terminal.
func (o *Order) CanTransitionTo(target string) bool {
	from, ok := statusRank[o.Status]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}

// IsDelivered reports whether the order has reached its terminal status.
func (o *Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}
