package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("cart line must keep at least one unit")
)

// CartService defines the interface for cart business logic. Stock is only
// read here; reservation happens at order creation.
type CartService interface {
	// AddItem merges quantity into an existing line or appends a new one.
	// Negative quantities reduce an existing line.
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if err != repository.ErrCartNotFound {
			return nil, err
		}
		// Lazily created on first add
		cart, err = s.cartRepo.Create(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	merged := quantity
	for _, item := range cart.Items {
		if item.ProductID == productID {
			merged = item.Quantity + quantity
			break
		}
	}

	if merged <= 0 {
		return nil, ErrInvalidQuantity
	}
	if merged > product.Quantity {
		return nil, repository.ErrInsufficientStock
	}

	// The upsert re-checks stock against the line in one statement, closing
	// the window between the read above and the write.
	if err := s.cartRepo.UpsertItem(ctx, cart.ID, productID, merged); err != nil {
		return nil, err
	}

	return s.cartRepo.FindByUser(ctx, userID)
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.cartRepo.FindByUser(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, fmt.Errorf("failed to remove item: %w", err)
	}

	return s.cartRepo.FindByUser(ctx, userID)
}
