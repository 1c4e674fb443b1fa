package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a product category with its tax rate
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	TaxRate     float64   `json:"tax_rate" db:"tax_rate"`
	IsDeleted   bool      `json:"-" db:"is_deleted"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Product represents a catalog product. Quantity is stock on hand and is
// decremented only when a confirmed order is created, never at cart-add time.
type Product struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	CategoryID   uuid.UUID `json:"category_id" db:"category_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Price        float64   `json:"price" db:"price"`
	SellingPrice float64   `json:"selling_price" db:"selling_price"`
	ImageURLs    []string  `json:"image_urls" db:"image_urls"`
	Sold         int       `json:"sold" db:"sold"`
	IsDeleted    bool      `json:"-" db:"is_deleted"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	// Category is resolved on read paths that need tax rates; nil otherwise.
	Category *Category `json:"category,omitempty" db:"-"`
}

// ProductFilter narrows product listings
type ProductFilter struct {
	Name       string
	CategoryID *uuid.UUID
	MinPrice   *float64
	MaxPrice   *float64
}
