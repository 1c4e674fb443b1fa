package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingAddress     = errors.New("add an address before checking out")
	ErrProductUnavailable = errors.New("product is no longer available")
	ErrInvalidQuoteToken  = errors.New("quote token is invalid or expired")
)

// CheckoutService prices the cart into an unpersisted quote and hands the
// client a signed token carrying it through the payment leg. The token is the
// single source of truth for order placement; the client never supplies
// prices.
type CheckoutService interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*domain.Quote, string, error)
	ParseQuoteToken(token string) (*domain.Quote, error)
}

type checkoutService struct {
	cartRepo    repository.CartRepository
	addressRepo repository.AddressRepository
	secret      string
	quoteTTL    time.Duration
}

type quoteClaims struct {
	Quote domain.Quote `json:"quote"`
	jwt.RegisteredClaims
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	cartRepo repository.CartRepository,
	addressRepo repository.AddressRepository,
	secret string,
	quoteTTL time.Duration,
) CheckoutService {
	return &checkoutService{
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		secret:      secret,
		quoteTTL:    quoteTTL,
	}
}

// Checkout validates every cart line against the live catalog and computes
// the order totals. The whole checkout aborts on the first bad line; no
// partial quote is ever produced.
func (s *checkoutService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.Quote, string, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if err == repository.ErrCartNotFound {
			return nil, "", ErrEmptyCart
		}
		return nil, "", err
	}
	if len(cart.Items) == 0 {
		return nil, "", ErrEmptyCart
	}

	items, subTotal, totalTax, err := priceCartLines(cart.Items)
	if err != nil {
		return nil, "", err
	}

	address, err := s.addressRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		if err == repository.ErrAddressNotFound {
			return nil, "", ErrMissingAddress
		}
		return nil, "", err
	}

	quote := &domain.Quote{
		UserID:          userID,
		Items:           items,
		ShippingAddress: address.Snapshot(),
		SubTotal:        subTotal,
		TotalTax:        totalTax,
		Total:           domain.Round2(subTotal + totalTax),
	}

	token, err := s.signQuote(quote)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign quote: %w", err)
	}

	return quote, token, nil
}

// ParseQuoteToken verifies the signature and expiry and returns the frozen
// quote
func (s *checkoutService) ParseQuoteToken(tokenString string) (*domain.Quote, error) {
	token, err := jwt.ParseWithClaims(tokenString, &quoteClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, ErrInvalidQuoteToken
	}

	claims, ok := token.Claims.(*quoteClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidQuoteToken
	}

	return &claims.Quote, nil
}

func (s *checkoutService) signQuote(quote *domain.Quote) (string, error) {
	now := time.Now()
	claims := &quoteClaims{
		Quote: *quote,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.quoteTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// priceCartLines freezes cart lines into order items. Each line tax is
// rounded to two decimals before summation, so the order totals are sums of
// rounded values.
func priceCartLines(lines []domain.CartItem) (items []domain.OrderItem, subTotal, totalTax float64, err error) {
	for _, line := range lines {
		product := line.Product
		if product == nil || product.IsDeleted {
			return nil, 0, 0, ErrProductUnavailable
		}
		if product.Category == nil || product.Category.IsDeleted {
			return nil, 0, 0, ErrProductUnavailable
		}
		if product.Quantity < line.Quantity {
			return nil, 0, 0, repository.ErrInsufficientStock
		}

		lineTotal := float64(line.Quantity) * product.SellingPrice
		lineTax := domain.Round2(lineTotal * product.Category.TaxRate / 100)

		subTotal += lineTotal
		totalTax += lineTax

		items = append(items, domain.OrderItem{
			ProductID:         product.ID,
			ProductName:       product.Name,
			Quantity:          line.Quantity,
			Price:             product.SellingPrice,
			TotalProductPrice: lineTotal,
			Tax:               lineTax,
		})
	}

	return items, domain.Round2(subTotal), domain.Round2(totalTax), nil
}
