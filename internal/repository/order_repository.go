package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderStateConflict signals that a conditional status update matched
	// no row: the order moved out of the expected state underneath us.
	ErrOrderStateConflict = errors.New("order status changed concurrently")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Create persists the order, decrements stock for every line, and clears
	// the buyer's cart in one transaction. Any line short on stock rolls the
	// whole transaction back with ErrInsufficientStock.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error
	Cancel(ctx context.Context, id uuid.UUID, from domain.OrderStatus, refundID string) error
	CountSince(ctx context.Context, since time.Time) (int, error)
	SalesSince(ctx context.Context, since time.Time) (float64, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		if err := DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	orderQuery := `
		INSERT INTO orders (id, user_id,
			ship_full_name, ship_phone_number, ship_street, ship_city, ship_state, ship_country, ship_zip_code, ship_landmark,
			total_price, processor_order_id, processor_payment_id, signature,
			payment_status, order_status, invoice_number, sub_total, total_tax, total, refund_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err = tx.ExecContext(
		ctx,
		orderQuery,
		order.ID,
		order.UserID,
		order.ShippingAddress.FullName,
		order.ShippingAddress.PhoneNumber,
		order.ShippingAddress.Street,
		order.ShippingAddress.City,
		order.ShippingAddress.State,
		order.ShippingAddress.Country,
		order.ShippingAddress.ZipCode,
		order.ShippingAddress.Landmark,
		order.TotalPrice,
		order.PaymentInfo.ProcessorOrderID,
		order.PaymentInfo.ProcessorPaymentID,
		order.PaymentInfo.Signature,
		order.PaymentStatus,
		order.OrderStatus,
		order.BillDetails.InvoiceNumber,
		order.BillDetails.SubTotal,
		order.BillDetails.TotalTax,
		order.BillDetails.Total,
		order.RefundID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price, total_product_price, tax)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, item := range order.Items {
		_, err = tx.ExecContext(
			ctx,
			itemQuery,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
			item.TotalProductPrice,
			item.Tax,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := ClearCart(ctx, tx, order.UserID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

const orderColumns = `id, user_id,
	ship_full_name, ship_phone_number, ship_street, ship_city, ship_state, ship_country, ship_zip_code, ship_landmark,
	total_price, COALESCE(processor_order_id, ''), COALESCE(processor_payment_id, ''), COALESCE(signature, ''),
	payment_status, order_status, invoice_number, sub_total, total_tax, total, COALESCE(refund_id, ''),
	created_at, updated_at`

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser returns the user's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)
	return r.queryOrders(ctx, query, userID)
}

// ListAll returns every order, newest first
func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at DESC`, orderColumns)
	return r.queryOrders(ctx, query)
}

// UpdateStatus moves an order between statuses conditionally on the expected
// current status, so concurrent updates cannot skip states
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	query := `UPDATE orders SET order_status = $3 WHERE id = $1 AND order_status = $2`

	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderStateConflict
	}

	return nil
}

// Cancel records the refund and moves the order to Cancelled, conditionally on
// the status observed by the caller
func (r *orderRepository) Cancel(ctx context.Context, id uuid.UUID, from domain.OrderStatus, refundID string) error {
	query := `
		UPDATE orders
		SET order_status = $3, refund_id = $4
		WHERE id = $1 AND order_status = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, from, domain.OrderCancelled, refundID)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderStateConflict
	}

	return nil
}

// CountSince counts orders created in the window
func (r *orderRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// SalesSince sums order totals over the window. Cancelled orders are refunded
// and do not count as revenue.
func (r *orderRepository) SalesSince(ctx context.Context, since time.Time) (float64, error) {
	var sales float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE created_at >= $1 AND order_status != $2`,
		since, domain.OrderCancelled,
	).Scan(&sales)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales: %w", err)
	}
	return sales, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrderRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT product_id, product_name, quantity, price, total_product_price, tax
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		item := domain.OrderItem{}
		err := rows.Scan(
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Price,
			&item.TotalProductPrice,
			&item.Tax,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrderFields(s rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := s.Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddress.FullName,
		&order.ShippingAddress.PhoneNumber,
		&order.ShippingAddress.Street,
		&order.ShippingAddress.City,
		&order.ShippingAddress.State,
		&order.ShippingAddress.Country,
		&order.ShippingAddress.ZipCode,
		&order.ShippingAddress.Landmark,
		&order.TotalPrice,
		&order.PaymentInfo.ProcessorOrderID,
		&order.PaymentInfo.ProcessorPaymentID,
		&order.PaymentInfo.Signature,
		&order.PaymentStatus,
		&order.OrderStatus,
		&order.BillDetails.InvoiceNumber,
		&order.BillDetails.SubTotal,
		&order.BillDetails.TotalTax,
		&order.BillDetails.Total,
		&order.RefundID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	order, err := scanOrderFields(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return order, nil
}

func scanOrderRows(rows *sql.Rows) (*domain.Order, error) {
	order, err := scanOrderFields(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}
