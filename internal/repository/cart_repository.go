package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound = errors.New("cart not found")
)

// CartRepository defines the interface for cart data access. A user has at
// most one cart, located by user id.
type CartRepository interface {
	Create(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// Create inserts an empty cart for the user
func (r *cartRepository) Create(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return cart, nil
}

// FindByUser retrieves the user's cart with each line's product and category
// resolved against the live catalog
func (r *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	query := `
		SELECT ci.product_id, ci.quantity,
		       p.id, p.name, p.description, p.category_id, p.quantity, p.price, p.selling_price,
		       p.image_urls, p.sold, p.is_deleted, p.created_at, p.updated_at,
		       c.id, c.name, c.description, c.image_url, c.tax_rate, c.is_deleted, c.created_at, c.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		item := domain.CartItem{}
		product := &domain.Product{}
		category := &domain.Category{}
		var images []byte

		err := rows.Scan(
			&item.ProductID,
			&item.Quantity,
			&product.ID,
			&product.Name,
			&product.Description,
			&product.CategoryID,
			&product.Quantity,
			&product.Price,
			&product.SellingPrice,
			&images,
			&product.Sold,
			&product.IsDeleted,
			&product.CreatedAt,
			&product.UpdatedAt,
			&category.ID,
			&category.Name,
			&category.Description,
			&category.ImageURL,
			&category.TaxRate,
			&category.IsDeleted,
			&category.CreatedAt,
			&category.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}

		if err := json.Unmarshal(images, &product.ImageURLs); err != nil {
			return nil, fmt.Errorf("failed to decode image urls: %w", err)
		}
		product.Category = category
		item.Product = product
		cart.Items = append(cart.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return cart, nil
}

// UpsertItem writes the line's absolute quantity in a single statement guarded
// by live stock, so a concurrent stock change cannot slip an oversubscribed
// line in. Zero rows matched means the guard failed.
func (r *cartRepository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		SELECT $1, p.id, $3, NOW(), NOW()
		FROM products p
		WHERE p.id = $2 AND p.is_deleted = FALSE AND p.quantity >= $3
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, updated_at = NOW()
		WHERE (SELECT quantity FROM products WHERE id = $2 AND is_deleted = FALSE) >= EXCLUDED.quantity
	`

	result, err := r.db.ExecContext(ctx, query, cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// RemoveItem drops a line; removing an absent line is a no-op
func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	if _, err := r.db.ExecContext(ctx, query, cartID, productID); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// ClearCart empties a user's cart within a transaction. The cart row itself
// survives; only its lines go.
func ClearCart(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	query := `
		DELETE FROM cart_items
		WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)
	`

	if _, err := tx.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
