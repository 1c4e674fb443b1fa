package transport

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddressRequest represents the address create/update payload
type AddressRequest struct {
	FullName     string `json:"full_name" validate:"required"`
	PhoneNumber  string `json:"phone_number" validate:"required"`
	BuildingName string `json:"building_name"`
	Street       string `json:"street" validate:"required"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	Country      string `json:"country" validate:"required"`
	ZipCode      string `json:"zip_code" validate:"required"`
	Landmark     string `json:"landmark"`
}

func (req AddressRequest) toInput() service.AddressInput {
	return service.AddressInput{
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		BuildingName: req.BuildingName,
		Street:       req.Street,
		City:         req.City,
		State:        req.State,
		Country:      req.Country,
		ZipCode:      req.ZipCode,
		Landmark:     req.Landmark,
	}
}

// AddressHandler handles HTTP requests for shipping address operations
type AddressHandler struct {
	addressService service.AddressService
	logger         *zap.Logger
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(addressService service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
		logger:         logger,
	}
}

// RegisterRoutes registers all address routes
func (h *AddressHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/address", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Get)
		r.Post("/", h.Add)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// Get returns the user's active address
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	address, err := h.addressService.GetAddress(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "address not found")
			return
		}
		h.logger.Error("Failed to get address", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get address")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, address)
}

// Add stores a new address for the user
func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddressRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	address, err := h.addressService.AddAddress(r.Context(), userID, req.toInput())
	if err != nil {
		if errors.Is(err, repository.ErrAddressAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, "an active address already exists, update it instead")
			return
		}
		h.logger.Error("Failed to add address", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add address")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, address)
}

// Update rewrites the user's active address
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddressRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	address, err := h.addressService.UpdateAddress(r.Context(), userID, req.toInput())
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "address not found")
			return
		}
		h.logger.Error("Failed to update address", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update address")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, address)
}

// Delete removes the user's active address
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.addressService.DeleteAddress(r.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "address not found")
			return
		}
		h.logger.Error("Failed to delete address", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete address")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "address deleted"})
}
