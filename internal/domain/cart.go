package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds one user's active item list. Lines reference live products, so
// stock and price reflect the current catalog until checkout freezes them.
type Cart struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Items     []CartItem `json:"items" db:"-"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CartItem is one product+quantity line within a cart
type CartItem struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`

	// Product is resolved at read time; nil when the line is loaded bare.
	Product *Product `json:"product,omitempty" db:"-"`
}
