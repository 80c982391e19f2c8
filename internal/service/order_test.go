package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
	apperrors "github.com/mwynn/storefront/pkg/errors"
)

func newOrderService(orderRepo *mockOrderRepo, productRepo *mockProductRepo, pub *mockPublisher) *OrderService {
	return NewOrderService(orderRepo, productRepo, pub, testLogger())
}

func TestCreateOrder_SnapshotsProducts(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	productRepo := &mockProductRepo{}
	pub := &mockPublisher{}
	svc := newOrderService(orderRepo, productRepo, pub)

	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	productRepo.On("GetByID", mock.Anything, productID).Return(&domain.Product{
		ID:     productID,
		Name:   "Mechanical Keyboard",
		Price:  12900,
		Images: []domain.Image{{URL: "https://img.example.com/kb.jpg"}},
	}, nil)

	orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Order).ID = primitive.NewObjectID()
		}).
		Return(nil)
	pub.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil)

	order, err := svc.CreateOrder(context.Background(), userID, CreateOrderInput{
		Items:      []CreateOrderItem{{ProductID: productID, Quantity: 2}},
		TotalPrice: 27300,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Mechanical Keyboard", order.Items[0].Name)
	assert.Equal(t, int64(12900), order.Items[0].Price)
	assert.Equal(t, "https://img.example.com/kb.jpg", order.Items[0].Image)
	assert.False(t, order.PaidAt.IsZero())
	pub.AssertExpectations(t)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc := newOrderService(&mockOrderRepo{}, &mockProductRepo{}, &mockPublisher{})

	_, err := svc.CreateOrder(context.Background(), primitive.NewObjectID(), CreateOrderInput{
		TotalPrice: 100,
	})

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	productRepo := &mockProductRepo{}
	svc := newOrderService(&mockOrderRepo{}, productRepo, &mockPublisher{})

	productID := primitive.NewObjectID()
	productRepo.On("GetByID", mock.Anything, productID).Return(nil, apperrors.NotFound("product"))

	_, err := svc.CreateOrder(context.Background(), primitive.NewObjectID(), CreateOrderInput{
		Items:      []CreateOrderItem{{ProductID: productID, Quantity: 1}},
		TotalPrice: 100,
	})

	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUpdateStatus_ShippedDecrementsStockOnce(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	productRepo := &mockProductRepo{}
	pub := &mockPublisher{}
	svc := newOrderService(orderRepo, productRepo, pub)

	orderID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	order := &domain.Order{
		ID:     orderID,
		UserID: primitive.NewObjectID(),
		Status: domain.OrderStatusProcessing,
		Items:  []domain.OrderItem{{ProductID: productID, Quantity: 3}},
	}

	orderRepo.On("GetByID", mock.Anything, orderID).Return(order, nil)
	productRepo.On("DecrementStock", mock.Anything, productID, 3).Return(nil).Once()
	orderRepo.On("UpdateStatus", mock.Anything, orderID, domain.OrderStatusShipped, (*time.Time)(nil)).Return(nil)
	pub.On("PublishOrderStatusChanged", mock.Anything, mock.Anything, domain.OrderStatusProcessing).Return(nil)

	updated, err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusShipped)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
	productRepo.AssertExpectations(t)
}

func TestUpdateStatus_RepeatShipConflictsWithoutSecondDecrement(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	productRepo := &mockProductRepo{}
	svc := newOrderService(orderRepo, productRepo, &mockPublisher{})

	orderID := primitive.NewObjectID()
	order := &domain.Order{
		ID:     orderID,
		Status: domain.OrderStatusShipped,
		Items:  []domain.OrderItem{{ProductID: primitive.NewObjectID(), Quantity: 3}},
	}
	orderRepo.On("GetByID", mock.Anything, orderID).Return(order, nil)

	_, err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusShipped)

	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_DeliveredStampsTimestamp(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	pub := &mockPublisher{}
	svc := newOrderService(orderRepo, &mockProductRepo{}, pub)

	orderID := primitive.NewObjectID()
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusShipped}

	orderRepo.On("GetByID", mock.Anything, orderID).Return(order, nil)

	var stamped *time.Time
	orderRepo.On("UpdateStatus", mock.Anything, orderID, domain.OrderStatusDelivered, mock.AnythingOfType("*time.Time")).
		Run(func(args mock.Arguments) {
			stamped = args.Get(3).(*time.Time)
		}).
		Return(nil)
	pub.On("PublishOrderStatusChanged", mock.Anything, mock.Anything, domain.OrderStatusShipped).Return(nil)

	updated, err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusDelivered)

	require.NoError(t, err)
	require.NotNil(t, stamped)
	assert.WithinDuration(t, time.Now().UTC(), *stamped, time.Minute)
	require.NotNil(t, updated.DeliveredAt)
}

func TestUpdateStatus_DeliveredIsTerminal(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	svc := newOrderService(orderRepo, &mockProductRepo{}, &mockPublisher{})

	orderID := primitive.NewObjectID()
	orderRepo.On("GetByID", mock.Anything, orderID).
		Return(&domain.Order{ID: orderID, Status: domain.OrderStatusDelivered}, nil)

	_, err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusShipped)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Contains(t, err.Error(), "already been delivered")
}

func TestUpdateStatus_BackwardMoveRejected(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	svc := newOrderService(orderRepo, &mockProductRepo{}, &mockPublisher{})

	orderID := primitive.NewObjectID()
	orderRepo.On("GetByID", mock.Anything, orderID).
		Return(&domain.Order{ID: orderID, Status: domain.OrderStatusShipped}, nil)

	_, err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusProcessing)

	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc := newOrderService(&mockOrderRepo{}, &mockProductRepo{}, &mockPublisher{})

	_, err := svc.UpdateStatus(context.Background(), primitive.NewObjectID(), "canceled")

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateStatus_StockFailureDoesNotBlockShipping(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	productRepo := &mockProductRepo{}
	pub := &mockPublisher{}
	svc := newOrderService(orderRepo, productRepo, pub)

	orderID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	order := &domain.Order{
		ID:     orderID,
		Status: domain.OrderStatusProcessing,
		Items:  []domain.OrderItem{{ProductID: productID, Quantity: 3}},
	}

	orderRepo.On("GetByID", mock.Anything, orderID).Return(order, nil)
	productRepo.On("DecrementStock", mock.Anything, productID, 3).
		Return(apperrors.Conflict("insufficient stock"))
	orderRepo.On("UpdateStatus", mock.Anything, orderID, domain.OrderStatusShipped, (*time.Time)(nil)).Return(nil)
	pub.On("PublishOrderStatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	updated, err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusShipped)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
}

func TestListOrders_SumsRevenue(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	svc := newOrderService(orderRepo, &mockProductRepo{}, &mockPublisher{})

	orderRepo.On("List", mock.Anything).Return([]domain.Order{
		{TotalPrice: 1000},
		{TotalPrice: 2500},
		{TotalPrice: 499},
	}, nil)

	report, err := svc.ListOrders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3999), report.TotalAmount)
	assert.Len(t, report.Orders, 3)
}
