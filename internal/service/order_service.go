package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/notification"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrOrderNotPaid        = errors.New("order is not paid, cannot refund")
	ErrOrderNotCancellable = errors.New("cannot cancel shipped or delivered orders")
	ErrInvalidTransition   = errors.New("illegal order status transition")
	ErrUnknownStatus       = errors.New("unknown order status")
)

// OrderService owns the order lifecycle: placement with stock reservation,
// status transitions, and cancellation with refund bookkeeping.
type OrderService interface {
	// PlaceOrder finalizes a checkout: the payment confirmation is verified
	// against the processor secret, the quote token is verified and opened,
	// and the order is committed atomically with its stock decrements and
	// cart clearing.
	PlaceOrder(ctx context.Context, userID uuid.UUID, quoteToken string, info domain.PaymentInfo) (*domain.Order, error)
	GetOrder(ctx context.Context, id, principalID uuid.UUID, principalRole string) (*domain.Order, error)
	ListOrdersForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, id, principalID uuid.UUID, principalRole, refundID string) error
	DashboardCounts(ctx context.Context, period string) (*DashboardCounts, error)
}

// DashboardCounts aggregates store activity over a period window
type DashboardCounts struct {
	TotalOrders    int     `json:"total_orders"`
	TotalSales     float64 `json:"total_sales"`
	TotalCustomers int     `json:"total_customers"`
	Period         string  `json:"period"`
}

type orderService struct {
	orderRepo       repository.OrderRepository
	productRepo     repository.ProductRepository
	userRepo        repository.UserRepository
	paymentService  PaymentService
	checkoutService CheckoutService
	mailer          notification.Mailer
	logger          *zap.Logger
	restockOnCancel bool
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	paymentService PaymentService,
	checkoutService CheckoutService,
	mailer notification.Mailer,
	logger *zap.Logger,
	restockOnCancel bool,
) OrderService {
	return &orderService{
		orderRepo:       orderRepo,
		productRepo:     productRepo,
		userRepo:        userRepo,
		paymentService:  paymentService,
		checkoutService: checkoutService,
		mailer:          mailer,
		logger:          logger,
		restockOnCancel: restockOnCancel,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, quoteToken string, info domain.PaymentInfo) (*domain.Order, error) {
	if err := s.paymentService.VerifyPayment(info.ProcessorOrderID, info.ProcessorPaymentID, info.Signature); err != nil {
		return nil, err
	}

	quote, err := s.checkoutService.ParseQuoteToken(quoteToken)
	if err != nil {
		return nil, err
	}
	if quote.UserID != userID {
		return nil, ErrForbidden
	}
	if len(quote.Items) == 0 {
		return nil, ErrEmptyCart
	}

	invoiceNumber, err := newInvoiceNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to mint invoice number: %w", err)
	}

	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           quote.Items,
		ShippingAddress: quote.ShippingAddress,
		TotalPrice:      quote.Total,
		PaymentInfo:     info,
		PaymentStatus:   domain.PaymentPaid,
		OrderStatus:     domain.OrderPending,
		BillDetails: domain.BillDetails{
			InvoiceNumber: invoiceNumber,
			SubTotal:      quote.SubTotal,
			TotalTax:      quote.TotalTax,
			Total:         quote.Total,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.notifyOrderPlaced(order)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id, principalID uuid.UUID, principalRole string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.UserID != principalID && !domain.IsAuthorized(principalRole, domain.RoleAdmin) {
		return nil, ErrForbidden
	}

	return order, nil
}

func (s *orderService) ListOrdersForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

func (s *orderService) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

// UpdateStatus moves an order along the transition table. Anything the table
// does not allow is rejected, including moves backward and moves out of
// terminal states.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(newStatus) {
		return nil, ErrUnknownStatus
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.OrderStatus, newStatus) {
		return nil, ErrInvalidTransition
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, order.OrderStatus, newStatus); err != nil {
		if err == repository.ErrOrderStateConflict {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	order.OrderStatus = newStatus
	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, id, principalID uuid.UUID, principalRole, refundID string) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if order.UserID != principalID && !domain.IsAuthorized(principalRole, domain.RoleAdmin) {
		return ErrForbidden
	}

	// Refunds only make sense for captured payments, whatever the
	// fulfillment state.
	if order.PaymentStatus != domain.PaymentPaid {
		return ErrOrderNotPaid
	}

	if order.OrderStatus == domain.OrderShipped || order.OrderStatus == domain.OrderDelivered {
		return ErrOrderNotCancellable
	}
	if !domain.CanTransition(order.OrderStatus, domain.OrderCancelled) {
		return ErrOrderNotCancellable
	}

	if err := s.orderRepo.Cancel(ctx, id, order.OrderStatus, refundID); err != nil {
		if err == repository.ErrOrderStateConflict {
			return ErrOrderNotCancellable
		}
		return err
	}

	if s.restockOnCancel {
		for _, item := range order.Items {
			if err := s.productRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				s.logger.Error("Failed to restock cancelled order line",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID.String()),
					zap.Error(err),
				)
			}
		}
	}

	return nil
}

func (s *orderService) DashboardCounts(ctx context.Context, period string) (*DashboardCounts, error) {
	since := periodStart(period, time.Now())

	totalOrders, err := s.orderRepo.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}

	totalSales, err := s.orderRepo.SalesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	totalCustomers, err := s.userRepo.CountByRole(ctx, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	return &DashboardCounts{
		TotalOrders:    totalOrders,
		TotalSales:     totalSales,
		TotalCustomers: totalCustomers,
		Period:         period,
	}, nil
}

// notifyOrderPlaced emails the buyer in the background. Failures are logged
// and never fail the order.
func (s *orderService) notifyOrderPlaced(order *domain.Order) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := s.userRepo.FindByID(ctx, order.UserID)
		if err != nil {
			s.logger.Warn("Order confirmation skipped, buyer lookup failed",
				zap.String("order_id", order.ID.String()), zap.Error(err))
			return
		}

		subject := "Order confirmed: " + order.BillDetails.InvoiceNumber
		body := fmt.Sprintf("Hi %s,\n\nYour order %s for %.2f has been confirmed.\n",
			user.Name, order.BillDetails.InvoiceNumber, order.TotalPrice)

		if err := s.mailer.Send(user.Email, subject, body); err != nil {
			s.logger.Warn("Failed to send order confirmation",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}()
}

// newInvoiceNumber mints a unique human-readable invoice id from a secure
// random source
func newInvoiceNumber() (string, error) {
	suffix, err := randomHex(6)
	if err != nil {
		return "", err
	}
	return "INV-" + suffix, nil
}

// periodStart maps a dashboard period name to its window start. Unknown
// periods fall back to all time.
func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "day":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		start := now.AddDate(0, 0, -int(now.Weekday()))
		return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, now.Location())
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case "half-year":
		start := now.AddDate(0, -5, 0)
		return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, now.Location())
	case "year":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
}
