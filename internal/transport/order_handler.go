package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceOrderRequest represents the order placement payload. The quote token
// carries the priced cart; the processor fields prove the payment.
type PlaceOrderRequest struct {
	QuoteToken         string `json:"quote_token" validate:"required"`
	ProcessorOrderID   string `json:"razorpay_order_id" validate:"required"`
	ProcessorPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature          string `json:"razorpay_signature" validate:"required"`
}

// UpdateOrderStatusRequest represents the admin status update payload
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CancelOrderRequest represents the order cancellation payload
type CancelOrderRequest struct {
	RefundID string `json:"refund_id"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/order", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Place)
		r.Get("/", h.ListMine)
		r.Put("/cancel/{id}", h.Cancel)
		r.With(middleware.RequireAdmin).Get("/all-order", h.ListAll)
		r.With(middleware.RequireAdmin).Put("/{id}", h.UpdateStatus)
		r.Get("/{id}", h.Get)
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin)
		r.Get("/counts/{period}", h.DashboardCounts)
	})
}

// Place verifies the payment and quote and commits the order
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info := domain.PaymentInfo{
		ProcessorOrderID:   req.ProcessorOrderID,
		ProcessorPaymentID: req.ProcessorPaymentID,
		Signature:          req.Signature,
	}

	order, err := h.orderService.PlaceOrder(r.Context(), userID, req.QuoteToken, info)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, "payment signature verification failed")
		case errors.Is(err, service.ErrInvalidQuoteToken):
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, "quote token is invalid or expired")
		case errors.Is(err, service.ErrForbidden):
			middleware.RespondWithError(w, http.StatusForbidden, "quote belongs to another user")
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusBadRequest, "quote has no items")
		case errors.Is(err, repository.ErrInsufficientStock):
			middleware.RespondWithError(w, http.StatusConflict, "not enough stock to fulfil the order")
		default:
			h.logger.Error("Order placement failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMine returns the authenticated user's orders, newest first
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orderService.ListOrdersForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// ListAll returns every order in the store, newest first
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAllOrders(r.Context())
	if err != nil {
		h.logger.Error("Failed to list all orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Get returns a single order, owners and admins only
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), id, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrForbidden):
			middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		default:
			h.logger.Error("Failed to get order", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus moves an order along the fulfilment lifecycle
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrUnknownStatus):
			middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
		case errors.Is(err, service.ErrInvalidTransition):
			middleware.RespondWithError(w, http.StatusConflict, "illegal order status transition")
		default:
			h.logger.Error("Order status update failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Cancel cancels a paid, unshipped order
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req CancelOrderRequest
	// Body is optional, decode failures fall back to an empty refund ID
	_ = middleware.DecodeAndValidate(r, &req)

	if err := h.orderService.Cancel(r.Context(), id, userID, role, req.RefundID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrForbidden):
			middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		case errors.Is(err, service.ErrOrderNotPaid):
			middleware.RespondWithError(w, http.StatusConflict, "order is not paid")
		case errors.Is(err, service.ErrOrderNotCancellable):
			middleware.RespondWithError(w, http.StatusConflict, "order can no longer be cancelled")
		case errors.Is(err, repository.ErrOrderStateConflict):
			middleware.RespondWithError(w, http.StatusConflict, "order status changed, retry")
		default:
			h.logger.Error("Order cancellation failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to cancel order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "order cancelled"})
}

// DashboardCounts returns store activity aggregates for a period
func (h *OrderHandler) DashboardCounts(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")

	counts, err := h.orderService.DashboardCounts(r.Context(), period)
	if err != nil {
		h.logger.Error("Failed to compute dashboard counts", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to compute dashboard counts")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, counts)
}
