package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrCategoryInUse  = errors.New("category has active products linked to it")
	ErrInvalidTaxRate = errors.New("tax rate must not be negative")
)

// CatalogService defines the interface for product and category management
type CatalogService interface {
	CreateCategory(ctx context.Context, name, description, imageURL string, taxRate float64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name, description, imageURL string, taxRate float64) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error)
	TopSellingProducts(ctx context.Context) ([]*domain.Product, error)
	NewestProducts(ctx context.Context) ([]*domain.Product, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// ProductInput carries product attributes for create and update
type ProductInput struct {
	Name         string
	Description  string
	CategoryID   uuid.UUID
	Quantity     int
	Price        float64
	SellingPrice float64
	ImageURLs    []string
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// CreateCategory creates a category, rejecting duplicates among active ones
func (s *catalogService) CreateCategory(ctx context.Context, name, description, imageURL string, taxRate float64) (*domain.Category, error) {
	if taxRate < 0 {
		return nil, ErrInvalidTaxRate
	}

	existing, err := s.categoryRepo.FindActiveByName(ctx, name)
	if err != nil && err != repository.ErrCategoryNotFound {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrCategoryAlreadyExists
	}

	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		TaxRate:     taxRate,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return category, nil
}

// UpdateCategory rewrites a category's attributes
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description, imageURL string, taxRate float64) (*domain.Category, error) {
	if taxRate < 0 {
		return nil, ErrInvalidTaxRate
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = name
	category.Description = description
	category.ImageURL = imageURL
	category.TaxRate = taxRate

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// DeleteCategory soft-deletes a category. A category with active products
// cannot go: carts and new orders still resolve tax through it.
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		return err
	}

	count, err := s.productRepo.CountActiveByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count linked products: %w", err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	return s.categoryRepo.SoftDelete(ctx, id)
}

// ListCategories returns all active categories
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

// CreateProduct creates a product under an existing category
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:           uuid.New(),
		Name:         input.Name,
		Description:  input.Description,
		CategoryID:   input.CategoryID,
		Quantity:     input.Quantity,
		Price:        input.Price,
		SellingPrice: input.SellingPrice,
		ImageURLs:    input.ImageURLs,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if product.ImageURLs == nil {
		product.ImageURLs = []string{}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// UpdateProduct rewrites a product's attributes
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Description = input.Description
	product.CategoryID = input.CategoryID
	product.Quantity = input.Quantity
	product.Price = input.Price
	product.SellingPrice = input.SellingPrice
	if input.ImageURLs != nil {
		product.ImageURLs = input.ImageURLs
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct soft-deletes a product
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.SoftDelete(ctx, id)
}

// GetProduct retrieves a product with its category resolved
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByIDWithCategory(ctx, id)
}

// ListProducts returns a filtered page of active products
func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error) {
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return s.productRepo.List(ctx, filter, page, pageSize)
}

// TopSellingProducts returns the ten best sellers
func (s *catalogService) TopSellingProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.TopSelling(ctx, 10)
}

// NewestProducts returns the ten most recent additions
func (s *catalogService) NewestProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.Newest(ctx, 10)
}
