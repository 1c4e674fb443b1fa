package service

import (
	"context"
	"math"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	service     CheckoutService
	productRepo *mockProductRepository
	cartRepo    *mockCartRepository
	addressRepo *mockAddressRepository
	userID      uuid.UUID
}

func newCheckoutFixture(t *testing.T, quoteTTL time.Duration) *checkoutFixture {
	t.Helper()
	productRepo := newMockProductRepository()
	cartRepo := newMockCartRepository(productRepo)
	addressRepo := newMockAddressRepository()

	userID := uuid.New()
	require.NoError(t, addressRepo.Create(context.Background(), &domain.Address{
		ID:          uuid.New(),
		UserID:      userID,
		FullName:    "Meera Pillai",
		PhoneNumber: "9876543210",
		Street:      "12 Hill Road",
		City:        "Kochi",
		State:       "Kerala",
		Country:     "India",
		ZipCode:     "682001",
	}))

	return &checkoutFixture{
		service:     NewCheckoutService(cartRepo, addressRepo, "test-secret-key", quoteTTL),
		productRepo: productRepo,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		userID:      userID,
	}
}

func (f *checkoutFixture) addProductToCart(t *testing.T, sellingPrice, taxRate float64, stock, qty int) *domain.Product {
	t.Helper()
	ctx := context.Background()

	category := &domain.Category{ID: uuid.New(), Name: "groceries", TaxRate: taxRate}
	product := &domain.Product{
		ID:           uuid.New(),
		Name:         "item",
		CategoryID:   category.ID,
		Quantity:     stock,
		Price:        sellingPrice * 1.1,
		SellingPrice: sellingPrice,
		Category:     category,
	}
	require.NoError(t, f.productRepo.Create(ctx, product))

	cart, err := f.cartRepo.FindByUser(ctx, f.userID)
	if err == repository.ErrCartNotFound {
		cart, err = f.cartRepo.Create(ctx, f.userID)
	}
	require.NoError(t, err)
	require.NoError(t, f.cartRepo.UpsertItem(ctx, cart.ID, product.ID, qty))
	return product
}

func TestProperty_QuoteTotalsAreSumsOfRoundedLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total tax equals the sum of per-line rounded taxes", prop.ForAll(
		func(prices []float64, taxRate float64) bool {
			fixture := newCheckoutFixture(t, 30*time.Minute)
			ctx := context.Background()

			expectedSub := 0.0
			expectedTax := 0.0
			for _, price := range prices {
				price = domain.Round2(price)
				qty := 1 + int(price)%3
				fixture.addProductToCart(t, price, taxRate, 100, qty)

				lineTotal := float64(qty) * price
				expectedSub += lineTotal
				expectedTax += domain.Round2(lineTotal * taxRate / 100)
			}

			quote, _, err := fixture.service.Checkout(ctx, fixture.userID)
			if err != nil {
				t.Logf("FAIL: checkout: %v", err)
				return false
			}

			const eps = 1e-9
			return math.Abs(quote.SubTotal-domain.Round2(expectedSub)) < eps &&
				math.Abs(quote.TotalTax-domain.Round2(expectedTax)) < eps &&
				math.Abs(quote.Total-domain.Round2(quote.SubTotal+quote.TotalTax)) < eps
		},
		gen.SliceOfN(4, gen.Float64Range(0.5, 999.99)),
		gen.Float64Range(0, 28),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCheckout_EmptyCart(t *testing.T) {
	fixture := newCheckoutFixture(t, 30*time.Minute)
	ctx := context.Background()

	// No cart yet
	_, _, err := fixture.service.Checkout(ctx, fixture.userID)
	assert.ErrorIs(t, err, ErrEmptyCart)

	// A cart with zero lines reads the same way
	_, err = fixture.cartRepo.Create(ctx, fixture.userID)
	require.NoError(t, err)
	_, _, err = fixture.service.Checkout(ctx, fixture.userID)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_MissingAddress(t *testing.T) {
	fixture := newCheckoutFixture(t, 30*time.Minute)
	fixture.addProductToCart(t, 100, 5, 10, 2)

	require.NoError(t, fixture.addressRepo.SoftDelete(context.Background(), fixture.userID))

	_, _, err := fixture.service.Checkout(context.Background(), fixture.userID)
	assert.ErrorIs(t, err, ErrMissingAddress)
}

func TestCheckout_UnavailableProduct(t *testing.T) {
	fixture := newCheckoutFixture(t, 30*time.Minute)
	product := fixture.addProductToCart(t, 100, 5, 10, 2)

	product.Category.IsDeleted = true
	_, _, err := fixture.service.Checkout(context.Background(), fixture.userID)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	fixture := newCheckoutFixture(t, 30*time.Minute)
	product := fixture.addProductToCart(t, 100, 5, 10, 2)

	// Stock dropped between cart add and checkout
	product.Quantity = 1
	_, _, err := fixture.service.Checkout(context.Background(), fixture.userID)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
}

func TestQuoteToken_RoundTrip(t *testing.T) {
	fixture := newCheckoutFixture(t, 30*time.Minute)
	fixture.addProductToCart(t, 249.99, 12, 10, 3)

	quote, token, err := fixture.service.Checkout(context.Background(), fixture.userID)
	require.NoError(t, err)

	parsed, err := fixture.service.ParseQuoteToken(token)
	require.NoError(t, err)
	assert.Equal(t, quote.UserID, parsed.UserID)
	assert.Equal(t, quote.Total, parsed.Total)
	assert.Equal(t, quote.Items, parsed.Items)
	assert.Equal(t, quote.ShippingAddress, parsed.ShippingAddress)
}

func TestQuoteToken_RejectsTampering(t *testing.T) {
	fixture := newCheckoutFixture(t, 30*time.Minute)
	fixture.addProductToCart(t, 100, 5, 10, 2)

	_, token, err := fixture.service.Checkout(context.Background(), fixture.userID)
	require.NoError(t, err)

	// Flip a character in the signature segment
	tampered := token[:len(token)-2] + "xx"
	_, err = fixture.service.ParseQuoteToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidQuoteToken)

	// A token signed with a different secret is rejected outright
	otherService := NewCheckoutService(fixture.cartRepo, fixture.addressRepo, "other-secret", 30*time.Minute)
	_, otherToken, err := otherService.Checkout(context.Background(), fixture.userID)
	require.NoError(t, err)
	_, err = fixture.service.ParseQuoteToken(otherToken)
	assert.ErrorIs(t, err, ErrInvalidQuoteToken)
}

func TestQuoteToken_RejectsExpired(t *testing.T) {
	fixture := newCheckoutFixture(t, -time.Minute)
	fixture.addProductToCart(t, 100, 5, 10, 2)

	_, token, err := fixture.service.Checkout(context.Background(), fixture.userID)
	require.NoError(t, err)

	_, err = fixture.service.ParseQuoteToken(token)
	assert.ErrorIs(t, err, ErrInvalidQuoteToken)
}
