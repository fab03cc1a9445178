package usecase

import (
	"context"
	"sync"

	"foodcart/internal/domain/model"
	repo "foodcart/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// testify mocks
// =====================

type MockCartRepository struct{ mock.Mock }

func (m *MockCartRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartRepository) FindByID(ctx context.Context, cartID string) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartRepository) Create(ctx context.Context, cart model.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *MockCartRepository) Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	args := m.Called(ctx, cart, expectedVersion)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

type MockProductRepository struct{ mock.Mock }

func (m *MockProductRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

type MockCartCache struct{ mock.Mock }

func (m *MockCartCache) Get(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartCache) Set(ctx context.Context, cart model.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *MockCartCache) Delete(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (model.Order, error) {
	args := m.Called(ctx, paymentID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	list, _ := args.Get(0).([]model.Order)
	return list, args.Get(1).(int64), args.Error(2)
}

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

type MockAddressRepository struct{ mock.Mock }

func (m *MockAddressRepository) Create(ctx context.Context, address model.Address) (model.Address, error) {
	args := m.Called(ctx, address)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *MockAddressRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Address)
	return list, args.Error(1)
}

func (m *MockAddressRepository) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *MockAddressRepository) Update(ctx context.Context, address model.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockAddressRepository) Delete(ctx context.Context, addressID int64) error {
	args := m.Called(ctx, addressID)
	return args.Error(0)
}

func (m *MockAddressRepository) IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error) {
	args := m.Called(ctx, addressID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAddressRepository) SetDefault(ctx context.Context, userID, addressID int64) error {
	args := m.Called(ctx, userID, addressID)
	return args.Error(0)
}

type MockAuditLogRepository struct{ mock.Mock }

func (m *MockAuditLogRepository) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditLogRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]model.AuditLog)
	return list, args.Error(1)
}

// TxManagerMock runs fn directly with fixed repos. No rollback.
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(ctx, m.Repos)
}

type txReposStub struct {
	carts  repo.CartRepository
	orders repo.OrderRepository
}

func (r txReposStub) Carts() repo.CartRepository   { return r.carts }
func (r txReposStub) Orders() repo.OrderRepository { return r.orders }

var (
	_ repo.CartRepository     = (*MockCartRepository)(nil)
	_ repo.ProductRepository  = (*MockProductRepository)(nil)
	_ repo.CartCache          = (*MockCartCache)(nil)
	_ repo.OrderRepository    = (*MockOrderRepository)(nil)
	_ repo.UserRepository     = (*MockUserRepository)(nil)
	_ repo.AddressRepository  = (*MockAddressRepository)(nil)
	_ repo.AuditLogRepository = (*MockAuditLogRepository)(nil)
	_ repo.TransactionManager = (*TxManagerMock)(nil)
)

// =====================
// in-memory stores for multi-step flows
// =====================

type memCartRepo struct {
	mu    sync.Mutex
	carts map[int64]model.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[int64]model.Cart{}}
}

func (r *memCartRepo) FindByUserID(_ context.Context, userID int64) (model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *memCartRepo) FindByID(_ context.Context, cartID string) (model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carts {
		if c.ID == cartID {
			return c.Clone(), nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r *memCartRepo) Create(_ context.Context, cart model.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[cart.UserID]; ok {
		return repo.ErrDuplicate
	}
	r.carts[cart.UserID] = cart.Clone()
	return nil
}

func (r *memCartRepo) Save(_ context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.carts[cart.UserID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return model.Cart{}, repo.ErrVersionConflict
	}
	cart.Version = expectedVersion + 1
	r.carts[cart.UserID] = cart.Clone()
	return cart.Clone(), nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders []model.Order
}

func (r *memOrderRepo) Create(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentID == order.PaymentID {
			return repo.ErrDuplicate
		}
	}
	r.orders = append(r.orders, *order)
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, orderID string) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r *memOrderRepo) FindByPaymentID(_ context.Context, paymentID string) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentID == paymentID {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r *memOrderRepo) ListByUserID(_ context.Context, userID int64, _ int, _ int) ([]model.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID == userID {
			out = append(out, r.orders[i])
		}
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}
