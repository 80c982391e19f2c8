package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/event"
	"github.com/mwynn/storefront/internal/repository"
	apperrors "github.com/mwynn/storefront/pkg/errors"
)

// OrderService implements the business logic for the order lifecycle.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	publisher   event.Publisher
	logger      *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	publisher event.Publisher,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateOrderInput holds the parameters for placing an order.
type CreateOrderInput struct {
	ShippingInfo  domain.ShippingInfo
	Items         []CreateOrderItem
	PaymentInfo   domain.PaymentInfo
	ItemsPrice    int64
	TaxPrice      int64
	ShippingPrice int64
	TotalPrice    int64
}

// CreateOrderItem identifies a product line in a new order.
type CreateOrderItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// OrderReport is the admin order listing together with the revenue sum.
type OrderReport struct {
	Orders      []domain.Order
	TotalAmount int64
}

// CreateOrder places an order for the given user. Each line is snapshotted
// from the current product document so later catalog edits cannot rewrite
// order history.
func (s *OrderService) CreateOrder(ctx context.Context, userID primitive.ObjectID, input CreateOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	if input.TotalPrice <= 0 {
		return nil, apperrors.InvalidInput("total price must be positive")
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidInput("item quantity must be positive")
		}

		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve order item %s: %w", line.ProductID.Hex(), err)
		}

		image := ""
		if len(product.Images) > 0 {
			image = product.Images[0].URL
		}

		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Image:     image,
		})
	}

	order := &domain.Order{
		UserID:        userID,
		ShippingInfo:  input.ShippingInfo,
		Items:         items,
		PaymentInfo:   input.PaymentInfo,
		PaidAt:        time.Now().UTC(),
		ItemsPrice:    input.ItemsPrice,
		TaxPrice:      input.TaxPrice,
		ShippingPrice: input.ShippingPrice,
		TotalPrice:    input.TotalPrice,
		Status:        domain.OrderStatusProcessing,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	// Publish order event (non-blocking on failure).
	if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID.Hex()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.Hex()),
		slog.String("user_id", userID.Hex()),
		slog.Int64("total_price", order.TotalPrice),
	)

	return order, nil
}

// GetOrder retrieves a single order. Admin only.
func (s *OrderService) GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// ListMyOrders returns the caller's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListOrders returns all orders plus the revenue sum. Admin only.
func (s *OrderService) ListOrders(ctx context.Context) (*OrderReport, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, o := range orders {
		total += o.TotalPrice
	}

	return &OrderReport{Orders: orders, TotalAmount: total}, nil
}

// UpdateStatus advances an order through its lifecycle. Transitions only move
// forward, so the shipping stock decrement can run at most once per order no
// matter how often the endpoint is retried. Admin only.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, target string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(target) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("status must be one of: %v", domain.ValidOrderStatuses()))
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.IsDelivered() {
		return nil, apperrors.Conflict("order has already been delivered")
	}
	if !order.CanTransitionTo(target) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot change order status from %s to %s", order.Status, target))
	}

	if target == domain.OrderStatusShipped {
		s.decrementStock(ctx, order)
	}

	previous := order.Status
	order.Status = target

	var deliveredAt *time.Time
	if target == domain.OrderStatusDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
		order.DeliveredAt = deliveredAt
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, target, deliveredAt); err != nil {
		return nil, err
	}

	// Publish status event (non-blocking on failure).
	if err := s.publisher.PublishOrderStatusChanged(ctx, order, previous); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID.Hex()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID.Hex()),
		slog.String("from", previous),
		slog.String("to", target),
	)

	return order, nil
}

// DeleteOrder removes an order. Admin only.
func (s *OrderService) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "order deleted",
		slog.String("order_id", id.Hex()),
	)

	return nil
}

// decrementStock reduces stock for every line on the order. Failures are
// logged and skipped; shipping is not blocked by a stock mismatch.
func (s *OrderService) decrementStock(ctx context.Context, order *domain.Order) {
	for _, item := range order.Items {
		if err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.WarnContext(ctx, "failed to decrement stock for shipped item",
				slog.String("order_id", order.ID.Hex()),
				slog.String("product_id", item.ProductID.Hex()),
				slog.Int("quantity", item.Quantity),
				slog.String("error", err.Error()),
			)
		}
	}
}
