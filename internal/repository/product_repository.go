package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock signals that a conditional stock decrement matched
	// no row: the product is gone, soft-deleted, or short on quantity.
	ErrInsufficientStock = errors.New("not enough stock")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDWithCategory(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error)
	TopSelling(ctx context.Context, limit int) ([]*domain.Product, error)
	Newest(ctx context.Context, limit int) ([]*domain.Product, error)
	CountActiveByCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, category_id, quantity, price, selling_price, image_urls, sold, is_deleted, created_at, updated_at`

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	images, err := json.Marshal(product.ImageURLs)
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}

	query := `
		INSERT INTO products (id, name, description, category_id, quantity, price, selling_price, image_urls, sold, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Quantity,
		product.Price,
		product.SellingPrice,
		images,
		product.Sold,
		product.IsDeleted,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates a non-deleted product. Stock and sold counters are not
// touched here; they only move through order creation and cancellation.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	images, err := json.Marshal(product.ImageURLs)
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}

	query := `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, quantity = $5,
		    price = $6, selling_price = $7, image_urls = $8
		WHERE id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Quantity,
		product.Price,
		product.SellingPrice,
		images,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// SoftDelete marks a product deleted
func (r *productRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE products SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a non-deleted product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1 AND is_deleted = FALSE
	`, productColumns)

	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// FindByIDWithCategory retrieves a non-deleted product with its category
// resolved, so callers get the tax rate in one round trip
func (r *productRepository) FindByIDWithCategory(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.category_id, p.quantity, p.price, p.selling_price,
		       p.image_urls, p.sold, p.is_deleted, p.created_at, p.updated_at,
		       c.id, c.name, c.description, c.image_url, c.tax_rate, c.is_deleted, c.created_at, c.updated_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.is_deleted = FALSE
	`

	product := &domain.Product{}
	category := &domain.Category{}
	var images []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
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
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	if err := json.Unmarshal(images, &product.ImageURLs); err != nil {
		return nil, fmt.Errorf("failed to decode image urls: %w", err)
	}
	product.Category = category

	return product, nil
}

// List retrieves non-deleted products matching the filter, newest first
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error) {
	whereClause := "WHERE is_deleted = FALSE"
	args := []interface{}{}
	argIndex := 1

	if filter.Name != "" {
		whereClause += fmt.Sprintf(" AND name ILIKE $%d", argIndex)
		args = append(args, "%"+filter.Name+"%")
		argIndex++
	}
	if filter.CategoryID != nil {
		whereClause += fmt.Sprintf(" AND category_id = $%d", argIndex)
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.MinPrice != nil {
		whereClause += fmt.Sprintf(" AND selling_price >= $%d", argIndex)
		args = append(args, *filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice != nil {
		whereClause += fmt.Sprintf(" AND selling_price <= $%d", argIndex)
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// TopSelling retrieves the best sellers among non-deleted products
func (r *productRepository) TopSelling(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE is_deleted = FALSE
		ORDER BY sold DESC
		LIMIT $1
	`, productColumns)

	return r.queryProducts(ctx, query, limit)
}

// Newest retrieves the most recently added non-deleted products
func (r *productRepository) Newest(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE is_deleted = FALSE
		ORDER BY created_at DESC
		LIMIT $1
	`, productColumns)

	return r.queryProducts(ctx, query, limit)
}

// CountActiveByCategory counts non-deleted products linked to a category
func (r *productRepository) CountActiveByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM products WHERE category_id = $1 AND is_deleted = FALSE`

	var count int
	if err := r.db.QueryRowContext(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// RestoreStock credits quantity back and rolls the sold counter down, used
// when a cancelled order restocks its lines
func (r *productRepository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	query := `
		UPDATE products
		SET quantity = quantity + $2, sold = GREATEST(sold - $2, 0)
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, qty); err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	return nil
}

// DecrementStock performs the conditional decrement within a transaction:
// quantity moves down and sold moves up only when enough stock is on hand.
// A zero-row result is reported as ErrInsufficientStock.
func DecrementStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) error {
	query := `
		UPDATE products
		SET quantity = quantity - $2, sold = sold + $2
		WHERE id = $1 AND is_deleted = FALSE AND quantity >= $2
	`

	result, err := tx.ExecContext(ctx, query, id, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
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

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProductRows(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	product := &domain.Product{}
	var images []byte

	err := row.Scan(
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
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	if err := json.Unmarshal(images, &product.ImageURLs); err != nil {
		return nil, fmt.Errorf("failed to decode image urls: %w", err)
	}

	return product, nil
}

func scanProductRows(rows *sql.Rows) (*domain.Product, error) {
	product := &domain.Product{}
	var images []byte

	err := rows.Scan(
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
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if err := json.Unmarshal(images, &product.ImageURLs); err != nil {
		return nil, fmt.Errorf("failed to decode image urls: %w", err)
	}

	return product, nil
}
