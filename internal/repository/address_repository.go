package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrAddressNotFound      = errors.New("address not found")
	ErrAddressAlreadyExists = errors.New("user already has an active address")
)

// AddressRepository defines the interface for address data access
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	Update(ctx context.Context, address *domain.Address) error
	SoftDelete(ctx context.Context, userID uuid.UUID) error
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Address, error)
}

type addressRepository struct {
	db *sql.DB
}

// NewAddressRepository creates a new instance of AddressRepository
func NewAddressRepository(db *sql.DB) AddressRepository {
	return &addressRepository{db: db}
}

// Create inserts a new address. A partial unique index keeps one non-deleted
// address per user.
func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	query := `
		INSERT INTO addresses (id, user_id, full_name, phone_number, building_name, street, city, state, country, zip_code, landmark, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		address.ID,
		address.UserID,
		address.FullName,
		address.PhoneNumber,
		address.BuildingName,
		address.Street,
		address.City,
		address.State,
		address.Country,
		address.ZipCode,
		address.Landmark,
		address.IsDeleted,
		address.CreatedAt,
		address.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "idx_addresses_active_user") {
			return ErrAddressAlreadyExists
		}
		return fmt.Errorf("failed to create address: %w", err)
	}

	return nil
}

// Update rewrites the user's active address in place
func (r *addressRepository) Update(ctx context.Context, address *domain.Address) error {
	query := `
		UPDATE addresses
		SET full_name = $2, phone_number = $3, building_name = $4, street = $5,
		    city = $6, state = $7, country = $8, zip_code = $9, landmark = $10
		WHERE user_id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		address.UserID,
		address.FullName,
		address.PhoneNumber,
		address.BuildingName,
		address.Street,
		address.City,
		address.State,
		address.Country,
		address.ZipCode,
		address.Landmark,
	)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAddressNotFound
	}

	return nil
}

// SoftDelete marks the user's active address deleted
func (r *addressRepository) SoftDelete(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE addresses SET is_deleted = TRUE WHERE user_id = $1 AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAddressNotFound
	}

	return nil
}

// FindActiveByUser retrieves the user's non-deleted address
func (r *addressRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Address, error) {
	query := `
		SELECT id, user_id, full_name, phone_number, building_name, street, city, state, country, zip_code, landmark, is_deleted, created_at, updated_at
		FROM addresses
		WHERE user_id = $1 AND is_deleted = FALSE
	`

	address := &domain.Address{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&address.ID,
		&address.UserID,
		&address.FullName,
		&address.PhoneNumber,
		&address.BuildingName,
		&address.Street,
		&address.City,
		&address.State,
		&address.Country,
		&address.ZipCode,
		&address.Landmark,
		&address.IsDeleted,
		&address.CreatedAt,
		&address.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}

	return address, nil
}
