package service

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing. They mirror the conditional-write semantics
// of the SQL implementations so the services see the same error taxonomy.

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, exists := m.users[user.Email]; exists && !existing.IsDeleted {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists || user.IsDeleted {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id && !user.IsDeleted {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id && !user.IsDeleted {
			user.IsDeleted = true
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, user := range m.users {
		if user.Role == role && !user.IsDeleted {
			count++
		}
	}
	return count, nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	for _, token := range m.tokens {
		if token.UserID.String() == userID {
			token.Revoked = true
		}
	}
	return nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	existing, exists := m.categories[category.ID]
	if !exists || existing.IsDeleted {
		return repository.ErrCategoryNotFound
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	category, exists := m.categories[id]
	if !exists || category.IsDeleted {
		return repository.ErrCategoryNotFound
	}
	category.IsDeleted = true
	return nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, exists := m.categories[id]
	if !exists || category.IsDeleted {
		return nil, repository.ErrCategoryNotFound
	}
	return category, nil
}

func (m *mockCategoryRepository) FindActiveByName(ctx context.Context, name string) (*domain.Category, error) {
	for _, category := range m.categories {
		if category.Name == name && !category.IsDeleted {
			return category, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, category := range m.categories {
		if !category.IsDeleted {
			out = append(out, category)
		}
	}
	return out, nil
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.products[product.ID]
	if !exists || existing.IsDeleted {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists || product.IsDeleted {
		return repository.ErrProductNotFound
	}
	product.IsDeleted = true
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists || product.IsDeleted {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindByIDWithCategory(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return m.FindByID(ctx, id)
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for _, product := range m.products {
		if !product.IsDeleted {
			out = append(out, product)
		}
	}
	return out, len(out), nil
}

func (m *mockProductRepository) TopSelling(ctx context.Context, limit int) ([]*domain.Product, error) {
	products, _, err := m.List(ctx, domain.ProductFilter{}, 1, limit)
	return products, err
}

func (m *mockProductRepository) Newest(ctx context.Context, limit int) ([]*domain.Product, error) {
	products, _, err := m.List(ctx, domain.ProductFilter{}, 1, limit)
	return products, err
}

func (m *mockProductRepository) CountActiveByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, product := range m.products {
		if product.CategoryID == categoryID && !product.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (m *mockProductRepository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	product.Quantity += qty
	product.Sold -= qty
	if product.Sold < 0 {
		product.Sold = 0
	}
	return nil
}

// decrementStock mirrors the conditional single-statement decrement used at
// order creation.
func (m *mockProductRepository) decrementStock(id uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists || product.IsDeleted || product.Quantity < qty {
		return repository.ErrInsufficientStock
	}
	product.Quantity -= qty
	product.Sold += qty
	return nil
}

type mockAddressRepository struct {
	addresses map[uuid.UUID]*domain.Address // keyed by user ID
}

func newMockAddressRepository() *mockAddressRepository {
	return &mockAddressRepository{addresses: make(map[uuid.UUID]*domain.Address)}
}

func (m *mockAddressRepository) Create(ctx context.Context, address *domain.Address) error {
	if existing, exists := m.addresses[address.UserID]; exists && !existing.IsDeleted {
		return repository.ErrAddressAlreadyExists
	}
	m.addresses[address.UserID] = address
	return nil
}

func (m *mockAddressRepository) Update(ctx context.Context, address *domain.Address) error {
	existing, exists := m.addresses[address.UserID]
	if !exists || existing.IsDeleted {
		return repository.ErrAddressNotFound
	}
	m.addresses[address.UserID] = address
	return nil
}

func (m *mockAddressRepository) SoftDelete(ctx context.Context, userID uuid.UUID) error {
	address, exists := m.addresses[userID]
	if !exists || address.IsDeleted {
		return repository.ErrAddressNotFound
	}
	address.IsDeleted = true
	return nil
}

func (m *mockAddressRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Address, error) {
	address, exists := m.addresses[userID]
	if !exists || address.IsDeleted {
		return nil, repository.ErrAddressNotFound
	}
	return address, nil
}

type mockCartRepository struct {
	mu          sync.Mutex
	carts       map[uuid.UUID]*domain.Cart // keyed by user ID
	productRepo *mockProductRepository
}

func newMockCartRepository(productRepo *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{
		carts:       make(map[uuid.UUID]*domain.Cart),
		productRepo: productRepo,
	}
}

func (m *mockCartRepository) Create(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := &domain.Cart{ID: uuid.New(), UserID: userID, Items: []domain.CartItem{}}
	m.carts[userID] = cart
	return cart, nil
}

func (m *mockCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, exists := m.carts[userID]
	if !exists {
		return nil, repository.ErrCartNotFound
	}
	// Resolve product snapshots the way the SQL join does
	resolved := &domain.Cart{ID: cart.ID, UserID: cart.UserID}
	for _, item := range cart.Items {
		line := item
		if m.productRepo != nil {
			if product, err := m.productRepo.FindByID(ctx, item.ProductID); err == nil {
				line.Product = product
			}
		}
		resolved.Items = append(resolved.Items, line)
	}
	return resolved, nil
}

func (m *mockCartRepository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	if m.productRepo != nil {
		product, err := m.productRepo.FindByID(ctx, productID)
		if err != nil || product.Quantity < quantity {
			return repository.ErrInsufficientStock
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cart := range m.carts {
		if cart.ID != cartID {
			continue
		}
		for i, item := range cart.Items {
			if item.ProductID == productID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
		cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, Quantity: quantity})
		return nil
	}
	return repository.ErrCartNotFound
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cart := range m.carts {
		if cart.ID != cartID {
			continue
		}
		for i, item := range cart.Items {
			if item.ProductID == productID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
		return nil
	}
	return repository.ErrCartNotFound
}

func (m *mockCartRepository) clear(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart, exists := m.carts[userID]; exists {
		cart.Items = nil
	}
}

type mockOrderRepository struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*domain.Order
	productRepo *mockProductRepository
	cartRepo    *mockCartRepository
}

func newMockOrderRepository(productRepo *mockProductRepository, cartRepo *mockCartRepository) *mockOrderRepository {
	return &mockOrderRepository{
		orders:      make(map[uuid.UUID]*domain.Order),
		productRepo: productRepo,
		cartRepo:    cartRepo,
	}
}

// Create decrements stock per line and clears the cart, rolling back decrements
// already applied when a later line runs short, matching the transactional
// implementation.
func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	var applied []domain.OrderItem
	for _, item := range order.Items {
		if err := m.productRepo.decrementStock(item.ProductID, item.Quantity); err != nil {
			for _, prev := range applied {
				_ = m.productRepo.RestoreStock(ctx, prev.ProductID, prev.Quantity)
			}
			return err
		}
		applied = append(applied, item)
	}

	if m.cartRepo != nil {
		m.cartRepo.clear(order.UserID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	order.CreatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, exists := m.orders[id]
	if !exists {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		out = append(out, order)
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, exists := m.orders[id]
	if !exists {
		return repository.ErrOrderNotFound
	}
	if order.OrderStatus != from {
		return repository.ErrOrderStateConflict
	}
	order.OrderStatus = to
	return nil
}

func (m *mockOrderRepository) Cancel(ctx context.Context, id uuid.UUID, from domain.OrderStatus, refundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, exists := m.orders[id]
	if !exists {
		return repository.ErrOrderNotFound
	}
	if order.OrderStatus != from {
		return repository.ErrOrderStateConflict
	}
	order.OrderStatus = domain.OrderCancelled
	order.RefundID = refundID
	return nil
}

func (m *mockOrderRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, order := range m.orders {
		if !order.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockOrderRepository) SalesSince(ctx context.Context, since time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for _, order := range m.orders {
		if !order.CreatedAt.Before(since) && order.OrderStatus != domain.OrderCancelled {
			total += order.TotalPrice
		}
	}
	return total, nil
}

type mockProcessor struct {
	lastAmount   int64
	lastCurrency string
	lastReceipt  string
	failWith     error
}

func (m *mockProcessor) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*payment.ProcessorOrder, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.lastAmount = amountMinor
	m.lastCurrency = currency
	m.lastReceipt = receipt
	return &payment.ProcessorOrder{
		ID:       "order_" + uuid.NewString()[:8],
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}
