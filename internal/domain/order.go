package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
	OrderFailed     OrderStatus = "Failed"
)

// PaymentStatus tracks the payment leg independently of fulfillment
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// orderTransitions is the allowed forward-only state machine. Cancellation is
// only reachable before the order ships; Delivered, Cancelled and Failed are
// terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled, OrderFailed},
	OrderProcessing: {OrderShipped, OrderCancelled, OrderFailed},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {},
	OrderCancelled:  {},
	OrderFailed:     {},
}

// ValidOrderStatus reports whether s names a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is a frozen line snapshot. Later product price or tax changes
// never alter it.
type OrderItem struct {
	ProductID         uuid.UUID `json:"product_id" db:"product_id"`
	ProductName       string    `json:"product_name" db:"product_name"`
	Quantity          int       `json:"quantity" db:"quantity"`
	Price             float64   `json:"price" db:"price"`
	TotalProductPrice float64   `json:"total_product_price" db:"total_product_price"`
	Tax               float64   `json:"tax" db:"tax"`
}

// PaymentInfo carries the external processor's confirmation triple
type PaymentInfo struct {
	ProcessorOrderID   string `json:"processor_order_id" db:"processor_order_id"`
	ProcessorPaymentID string `json:"processor_payment_id" db:"processor_payment_id"`
	Signature          string `json:"signature" db:"signature"`
}

// BillDetails is the invoice block of an order
type BillDetails struct {
	InvoiceNumber string  `json:"invoice_number" db:"invoice_number"`
	SubTotal      float64 `json:"sub_total" db:"sub_total"`
	TotalTax      float64 `json:"total_tax" db:"total_tax"`
	Total         float64 `json:"total" db:"total"`
}

// Order owns value copies of its items and shipping address
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Items           []OrderItem     `json:"items" db:"-"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	TotalPrice      float64         `json:"total_price" db:"total_price"`
	PaymentInfo     PaymentInfo     `json:"payment_info"`
	PaymentStatus   PaymentStatus   `json:"payment_status" db:"payment_status"`
	OrderStatus     OrderStatus     `json:"order_status" db:"order_status"`
	BillDetails     BillDetails     `json:"bill_details"`
	RefundID        string          `json:"refund_id,omitempty" db:"refund_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Quote is the computed, unpersisted pricing result produced by checkout. It
// precedes the payment leg and is carried to order placement as a signed token.
type Quote struct {
	UserID          uuid.UUID       `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	SubTotal        float64         `json:"sub_total"`
	TotalTax        float64         `json:"total_tax"`
	Total           float64         `json:"total"`
}

// Round2 rounds to two decimal places. Line taxes are rounded individually
// before summation, so order totals are sums of rounded values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
