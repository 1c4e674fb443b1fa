package transport

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreatePaymentOrderRequest represents the payment order creation payload.
// Amount is in major currency units and is re-derived from the quote before
// anything is charged.
type CreatePaymentOrderRequest struct {
	QuoteToken string `json:"quote_token" validate:"required"`
}

// VerifyPaymentRequest represents the payment verification payload
type VerifyPaymentRequest struct {
	ProcessorOrderID   string `json:"razorpay_order_id" validate:"required"`
	ProcessorPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature          string `json:"razorpay_signature" validate:"required"`
}

// PaymentHandler handles HTTP requests for payment operations
type PaymentHandler struct {
	paymentService  service.PaymentService
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, checkoutService service.CheckoutService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers all payment routes. rateLimit guards the
// processor-facing endpoints.
func (h *PaymentHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/payment", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(rateLimit)
		r.Post("/create-rp-order", h.CreateOrder)
		r.Post("/verify-rp-payment", h.VerifyPayment)
	})
}

// CreateOrder opens a processor order for the quoted amount
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreatePaymentOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The amount always comes from the signed quote, never from the client
	quote, err := h.checkoutService.ParseQuoteToken(req.QuoteToken)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "quote token is invalid or expired")
		return
	}
	if quote.UserID != userID {
		middleware.RespondWithError(w, http.StatusForbidden, "quote belongs to another user")
		return
	}

	order, err := h.paymentService.CreatePaymentIntent(r.Context(), quote.Total)
	if err != nil {
		if errors.Is(err, payment.ErrProvider) {
			h.logger.Error("Payment provider rejected order creation", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadGateway, "payment provider unavailable")
			return
		}
		h.logger.Error("Payment order creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create payment order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// VerifyPayment checks the processor's signature over the payment
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.paymentService.VerifyPayment(req.ProcessorOrderID, req.ProcessorPaymentID, req.Signature); err != nil {
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "payment signature verification failed")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
