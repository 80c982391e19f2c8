package http

import (
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/service"
	apperrors "github.com/mwynn/storefront/pkg/errors"
	"github.com/mwynn/storefront/pkg/httputil"
	"github.com/mwynn/storefront/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// CreateOrderRequest is the JSON request body for placing an order.
type CreateOrderRequest struct {
	ShippingInfo  domain.ShippingInfo      `json:"shipping_info" validate:"required"`
	Items         []CreateOrderItemRequest `json:"order_items" validate:"required,min=1,dive"`
	PaymentInfo   domain.PaymentInfo       `json:"payment_info"`
	ItemsPrice    int64                    `json:"items_price" validate:"gte=0"`
	TaxPrice      int64                    `json:"tax_price" validate:"gte=0"`
	ShippingPrice int64                    `json:"shipping_price" validate:"gte=0"`
	TotalPrice    int64                    `json:"total_price" validate:"required,gte=1"`
}

// CreateOrderItemRequest is one product line in a new order.
type CreateOrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateOrderStatusRequest is the JSON request body for a status transition.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create handles POST /api/newOrder
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := identityObjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	items := make([]service.CreateOrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		productID, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("invalid product_id in order items"), h.logger)
			return
		}
		items = append(items, service.CreateOrderItem{
			ProductID: productID,
			Quantity:  line.Quantity,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), userID, service.CreateOrderInput{
		ShippingInfo:  req.ShippingInfo,
		Items:         items,
		PaymentInfo:   req.PaymentInfo,
		ItemsPrice:    req.ItemsPrice,
		TaxPrice:      req.TaxPrice,
		ShippingPrice: req.ShippingPrice,
		TotalPrice:    req.TotalPrice,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, httputil.Envelope{"order": order})
}

// Get handles GET /api/order/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"order": order})
}

// ListMine handles GET /api/orders/me
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := identityObjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	orders, err := h.service.ListMyOrders(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"orders": orders})
}

// ListAll handles GET /api/allOrders
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ListOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"orders":       report.Orders,
		"total_amount": report.TotalAmount,
	})
}

// UpdateStatus handles PUT /api/updateOrder/{id}
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateOrderStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"order": order})
}

// Delete handles DELETE /api/deletOrder/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"message": "order deleted successfully",
	})
}
