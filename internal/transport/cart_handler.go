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

// CartItemRequest represents the add-to-cart payload. Quantity merges into
// an existing line; negative values reduce it.
type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required"`
}

// RemoveCartItemRequest represents the remove-from-cart payload
type RemoveCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// CheckoutResponse carries the priced quote and the signed token the client
// hands back when placing the order
type CheckoutResponse struct {
	Quote      *domain.Quote `json:"quote"`
	QuoteToken string        `json:"quote_token"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	cartService     service.CartService
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, checkoutService service.CheckoutService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService:     cartService,
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Get)
		r.Post("/", h.AddItem)
		r.Delete("/", h.RemoveItem)
		r.Post("/checkout", h.Checkout)
	})
}

// Get returns the user's cart with product details resolved
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			// An untouched cart reads as empty
			middleware.RespondWithJSON(w, http.StatusOK, domain.Cart{UserID: userID, Items: []domain.CartItem{}})
			return
		}
		h.logger.Error("Failed to get cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem merges a quantity into the user's cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, service.ErrInvalidQuantity):
			middleware.RespondWithError(w, http.StatusBadRequest, "resulting quantity must be at least one")
		case errors.Is(err, repository.ErrInsufficientStock):
			middleware.RespondWithError(w, http.StatusConflict, "not enough stock")
		default:
			h.logger.Error("Failed to add cart item", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// RemoveItem drops a product line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RemoveCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "cart not found")
			return
		}
		h.logger.Error("Failed to remove cart item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// Checkout prices the cart against current stock, tax rates and the user's
// address and returns a signed quote
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	quote, token, err := h.checkoutService.Checkout(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, service.ErrMissingAddress):
			middleware.RespondWithError(w, http.StatusBadRequest, "add a shipping address before checking out")
		case errors.Is(err, service.ErrProductUnavailable):
			middleware.RespondWithError(w, http.StatusConflict, "a product in the cart is no longer available")
		case errors.Is(err, repository.ErrInsufficientStock):
			middleware.RespondWithError(w, http.StatusConflict, "not enough stock for a product in the cart")
		default:
			h.logger.Error("Checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to checkout")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CheckoutResponse{Quote: quote, QuoteToken: token})
}
