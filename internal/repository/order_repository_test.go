package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestOrder(userID uuid.UUID, items []domain.OrderItem) *domain.Order {
	subTotal := 0.0
	totalTax := 0.0
	for _, item := range items {
		subTotal += item.TotalProductPrice
		totalTax += item.Tax
	}
	total := domain.Round2(subTotal + totalTax)

	return &domain.Order{
		ID:     uuid.New(),
		UserID: userID,
		Items:  items,
		ShippingAddress: domain.ShippingAddress{
			FullName:    "Meera Pillai",
			PhoneNumber: "9876543210",
			Street:      "12 Marine Drive",
			City:        "Kochi",
			State:       "Kerala",
			Country:     "India",
			ZipCode:     "682001",
		},
		TotalPrice: total,
		PaymentInfo: domain.PaymentInfo{
			ProcessorOrderID:   "order_" + uuid.New().String()[:12],
			ProcessorPaymentID: "pay_" + uuid.New().String()[:12],
			Signature:          "sig",
		},
		PaymentStatus: domain.PaymentPaid,
		OrderStatus:   domain.OrderPending,
		BillDetails: domain.BillDetails{
			InvoiceNumber: "INV-" + uuid.New().String()[:12],
			SubTotal:      domain.Round2(subTotal),
			TotalTax:      domain.Round2(totalTax),
			Total:         total,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func orderLine(product *domain.Product, qty int, taxRate float64) domain.OrderItem {
	lineTotal := domain.Round2(product.SellingPrice * float64(qty))
	return domain.OrderItem{
		ProductID:         product.ID,
		ProductName:       product.Name,
		Quantity:          qty,
		Price:             product.SellingPrice,
		TotalProductPrice: lineTotal,
		Tax:               domain.Round2(lineTotal * taxRate / 100),
	}
}

func TestOrderRepository_CreateCommitsAtomically(t *testing.T) {
	orderRepo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)
	cartRepo := NewCartRepository(testDB)
	ctx := context.Background()

	user := seedUser(t)
	category := seedCategory(t, 18)
	product := seedProduct(t, category.ID, 10, 200)

	cart, err := cartRepo.Create(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, cartRepo.UpsertItem(ctx, cart.ID, product.ID, 3))

	order := buildTestOrder(user.ID, []domain.OrderItem{orderLine(product, 3, 18)})
	require.NoError(t, orderRepo.Create(ctx, order))

	// Stock moved and the cart emptied in the same commit
	updated, err := productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.Equal(t, 3, updated.Sold)

	loadedCart, err := cartRepo.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, loadedCart.Items)

	// The order reads back with its lines intact
	found, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, found.UserID)
	assert.Equal(t, domain.OrderPending, found.OrderStatus)
	assert.Equal(t, domain.PaymentPaid, found.PaymentStatus)
	assert.Equal(t, order.BillDetails.InvoiceNumber, found.BillDetails.InvoiceNumber)
	require.Len(t, found.Items, 1)
	assert.Equal(t, product.ID, found.Items[0].ProductID)
	assert.Equal(t, 3, found.Items[0].Quantity)
	assert.InDelta(t, order.BillDetails.TotalTax, found.BillDetails.TotalTax, 0.001)
}

func TestOrderRepository_CreateRollsBackOnShortStock(t *testing.T) {
	orderRepo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)
	cartRepo := NewCartRepository(testDB)
	ctx := context.Background()

	user := seedUser(t)
	category := seedCategory(t, 5)
	plenty := seedProduct(t, category.ID, 10, 80)
	scarce := seedProduct(t, category.ID, 1, 300)

	cart, err := cartRepo.Create(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, cartRepo.UpsertItem(ctx, cart.ID, plenty.ID, 2))

	order := buildTestOrder(user.ID, []domain.OrderItem{
		orderLine(plenty, 2, 5),
		orderLine(scarce, 2, 5),
	})

	err = orderRepo.Create(ctx, order)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The first line's decrement must have rolled back with the rest
	p, err := productRepo.FindByID(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Quantity)
	assert.Equal(t, 0, p.Sold)

	s, err := productRepo.FindByID(ctx, scarce.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Quantity)

	// Cart survives, order row does not exist
	loadedCart, err := cartRepo.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, loadedCart.Items, 1)

	_, err = orderRepo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepository_UpdateStatusIsConditional(t *testing.T) {
	orderRepo := NewOrderRepository(testDB)
	ctx := context.Background()

	user := seedUser(t)
	category := seedCategory(t, 0)
	product := seedProduct(t, category.ID, 5, 150)

	order := buildTestOrder(user.ID, []domain.OrderItem{orderLine(product, 1, 0)})
	require.NoError(t, orderRepo.Create(ctx, order))

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, domain.OrderPending, domain.OrderProcessing))

	// A second mover still expecting Pending loses the race
	err := orderRepo.UpdateStatus(ctx, order.ID, domain.OrderPending, domain.OrderCancelled)
	require.ErrorIs(t, err, ErrOrderStateConflict)

	found, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, found.OrderStatus)
}

func TestOrderRepository_CancelRecordsRefund(t *testing.T) {
	orderRepo := NewOrderRepository(testDB)
	ctx := context.Background()

	user := seedUser(t)
	category := seedCategory(t, 0)
	product := seedProduct(t, category.ID, 5, 90)

	order := buildTestOrder(user.ID, []domain.OrderItem{orderLine(product, 1, 0)})
	require.NoError(t, orderRepo.Create(ctx, order))

	require.NoError(t, orderRepo.Cancel(ctx, order.ID, domain.OrderPending, "rfnd_123"))

	found, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, found.OrderStatus)
	assert.Equal(t, "rfnd_123", found.RefundID)

	// Cancelling again conflicts since the order left Pending
	err = orderRepo.Cancel(ctx, order.ID, domain.OrderPending, "rfnd_456")
	assert.ErrorIs(t, err, ErrOrderStateConflict)
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	orderRepo := NewOrderRepository(testDB)
	ctx := context.Background()

	user := seedUser(t)
	category := seedCategory(t, 0)
	product := seedProduct(t, category.ID, 10, 45)

	first := buildTestOrder(user.ID, []domain.OrderItem{orderLine(product, 1, 0)})
	first.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, orderRepo.Create(ctx, first))

	second := buildTestOrder(user.ID, []domain.OrderItem{orderLine(product, 1, 0)})
	require.NoError(t, orderRepo.Create(ctx, second))

	orders, err := orderRepo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestOrderRepository_DashboardWindows(t *testing.T) {
	orderRepo := NewOrderRepository(testDB)
	ctx := context.Background()

	user := seedUser(t)
	category := seedCategory(t, 0)
	product := seedProduct(t, category.ID, 10, 500)

	countBefore, err := orderRepo.CountSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	salesBefore, err := orderRepo.SalesSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	order := buildTestOrder(user.ID, []domain.OrderItem{orderLine(product, 2, 0)})
	require.NoError(t, orderRepo.Create(ctx, order))

	count, err := orderRepo.CountSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, countBefore+1, count)

	sales, err := orderRepo.SalesSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, salesBefore+1000.0, sales, 0.001)

	// A window starting in the future sees nothing
	count, err = orderRepo.CountSince(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}
