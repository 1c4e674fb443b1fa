package service

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// AddressService defines the interface for shipping address operations
type AddressService interface {
	AddAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error)
	UpdateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error)
	DeleteAddress(ctx context.Context, userID uuid.UUID) error
	GetAddress(ctx context.Context, userID uuid.UUID) (*domain.Address, error)
}

// AddressInput carries address attributes for create and update
type AddressInput struct {
	FullName     string
	PhoneNumber  string
	BuildingName string
	Street       string
	City         string
	State        string
	Country      string
	ZipCode      string
	Landmark     string
}

type addressService struct {
	addressRepo repository.AddressRepository
}

// NewAddressService creates a new instance of AddressService
func NewAddressService(addressRepo repository.AddressRepository) AddressService {
	return &addressService{addressRepo: addressRepo}
}

// AddAddress stores the user's shipping address. Each user keeps at most
// one active address.
func (s *addressService) AddAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error) {
	address := &domain.Address{
		ID:           uuid.New(),
		UserID:       userID,
		FullName:     input.FullName,
		PhoneNumber:  input.PhoneNumber,
		BuildingName: input.BuildingName,
		Street:       input.Street,
		City:         input.City,
		State:        input.State,
		Country:      input.Country,
		ZipCode:      input.ZipCode,
		Landmark:     input.Landmark,
	}

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, err
	}

	return address, nil
}

// UpdateAddress rewrites the user's active address in place.
func (s *addressService) UpdateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error) {
	address, err := s.addressRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	address.FullName = input.FullName
	address.PhoneNumber = input.PhoneNumber
	address.BuildingName = input.BuildingName
	address.Street = input.Street
	address.City = input.City
	address.State = input.State
	address.Country = input.Country
	address.ZipCode = input.ZipCode
	address.Landmark = input.Landmark

	if err := s.addressRepo.Update(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	return address, nil
}

func (s *addressService) DeleteAddress(ctx context.Context, userID uuid.UUID) error {
	return s.addressRepo.SoftDelete(ctx, userID)
}

func (s *addressService) GetAddress(ctx context.Context, userID uuid.UUID) (*domain.Address, error) {
	return s.addressRepo.FindActiveByUser(ctx, userID)
}
