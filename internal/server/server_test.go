package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"foodcart/internal/config"
	"foodcart/internal/domain/model"
	"foodcart/internal/handler"
	"foodcart/internal/infra/cache"
	"foodcart/internal/metrics"
	"foodcart/internal/payment"
	repo "foodcart/internal/repository"
	"foodcart/internal/usecase"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret     = "jwt-secret"
	testPaymentSecret = "payment-secret"
)

// =====================
// in-memory stores
// =====================

type memStore struct {
	mu        sync.Mutex
	carts     map[int64]model.Cart
	orders    []model.Order
	products  map[int64]model.Product
	users     map[int64]model.User
	addresses map[int64]model.Address
	nextAddr  int64
}

func newMemStore() *memStore {
	return &memStore{
		carts: map[int64]model.Cart{},
		products: map[int64]model.Product{
			1: {ID: 1, VendorID: 10, Title: "Masala Dosa", Price: decimal.RequireFromString("100"), IsActive: true},
			2: {ID: 2, VendorID: 20, Title: "Momos", Price: decimal.RequireFromString("80"), IsActive: true},
		},
		users: map[int64]model.User{
			7: {ID: 7, Name: "Asha", Email: "asha@example.com", Mobile: "9000000001", TokenVersion: 1, IsActive: true},
		},
		addresses: map[int64]model.Address{},
		nextAddr:  1,
	}
}

type memCarts struct{ s *memStore }

func (r memCarts) FindByUserID(_ context.Context, userID int64) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c.Clone(), nil
}

func (r memCarts) FindByID(_ context.Context, cartID string) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.ID == cartID {
			return c.Clone(), nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r memCarts) Create(_ context.Context, cart model.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[cart.UserID]; ok {
		return repo.ErrDuplicate
	}
	r.s.carts[cart.UserID] = cart.Clone()
	return nil
}

func (r memCarts) Save(_ context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.carts[cart.UserID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return model.Cart{}, repo.ErrVersionConflict
	}
	cart.Version = expectedVersion + 1
	r.s.carts[cart.UserID] = cart.Clone()
	return cart.Clone(), nil
}

type memOrders struct{ s *memStore }

func (r memOrders) Create(_ context.Context, order *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.PaymentID == order.PaymentID {
			return repo.ErrDuplicate
		}
	}
	r.s.orders = append(r.s.orders, *order)
	return nil
}

func (r memOrders) find(match func(model.Order) bool) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if match(o) {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r memOrders) FindByID(_ context.Context, id string) (model.Order, error) {
	return r.find(func(o model.Order) bool { return o.ID == id })
}

func (r memOrders) FindByPaymentID(_ context.Context, paymentID string) (model.Order, error) {
	return r.find(func(o model.Order) bool { return o.PaymentID == paymentID })
}

func (r memOrders) ListByUserID(_ context.Context, userID int64, _, _ int) ([]model.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Order
	for i := len(r.s.orders) - 1; i >= 0; i-- {
		if r.s.orders[i].UserID == userID {
			out = append(out, r.s.orders[i])
		}
	}
	return out, int64(len(out)), nil
}

type memProducts struct{ s *memStore }

func (r memProducts) FindByID(_ context.Context, id int64) (model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

type memAddresses struct{ s *memStore }

func (r memAddresses) Create(_ context.Context, a model.Address) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.nextAddr
	r.s.nextAddr++
	r.s.addresses[a.ID] = a
	return a, nil
}

func (r memAddresses) ListByUserID(_ context.Context, userID int64) ([]model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Address
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAddresses) FindByID(_ context.Context, id int64) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.addresses[id]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (r memAddresses) Update(_ context.Context, a model.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[a.ID]
	if !ok {
		return repo.ErrNotFound
	}
	a.CreatedAt, a.IsDefault = cur.CreatedAt, cur.IsDefault
	r.s.addresses[a.ID] = a
	return nil
}

func (r memAddresses) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.addresses, id)
	return nil
}

func (r memAddresses) IsOwnedByUser(_ context.Context, id, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.addresses[id]
	return ok && a.UserID == userID, nil
}

func (r memAddresses) SetDefault(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, a := range r.s.addresses {
		if a.UserID == userID {
			a.IsDefault = k == id
			r.s.addresses[k] = a
		}
	}
	return nil
}

type memTx struct{ s *memStore }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	return fn(ctx, t)
}

func (t memTx) Carts() repo.CartRepository   { return memCarts{t.s} }
func (t memTx) Orders() repo.OrderRepository { return memOrders{t.s} }

type nopAudit struct{}

func (nopAudit) Create(context.Context, model.AuditLog) error { return nil }
func (nopAudit) List(context.Context, repo.AuditLogFilter) ([]model.AuditLog, error) {
	return nil, nil
}

// =====================
// client
// =====================

type testClient struct {
	t      *testing.T
	base   string
	bearer string
}

func (c *testClient) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(c.t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, out), "body=%s", raw)
	}
	return res.StatusCode
}

func bearerFor(t *testing.T, userID int64, tv int) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"tv":  tv,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return s
}

type testServer struct {
	url     string
	gateway *payment.SandboxGateway
	store   *memStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := newMemStore()

	gw := payment.NewSandboxGateway([]byte(testPaymentSecret))
	verifier, err := payment.NewVerifier([]byte(testPaymentSecret), gw,
		cache.NewRedisAttemptStore(rdb, time.Hour),
		cache.NewRedisIntentStore(rdb, time.Hour),
		payment.WithMetrics(m),
		payment.WithAuditLog(nopAudit{}),
	)
	require.NoError(t, err)

	cartCache := cache.NewRedisCartCache(rdb, time.Minute)
	carts := memCarts{store}

	e := New(Deps{
		Config:   config.Config{JWTSecret: testJWTSecret},
		Logger:   zap.NewNop(),
		Metrics:  m,
		Gatherer: reg,
		Users:    memUsers{store},
		Handlers: Handlers{
			Cart:    handler.NewCartHandler(usecase.NewCartUsecase(carts, memProducts{store}, cartCache, m, time.Second)),
			Payment: handler.NewPaymentHandler(usecase.NewPaymentUsecase(verifier, carts, time.Second)),
			Order: handler.NewOrderHandler(usecase.NewOrderUsecase(
				memTx{store}, memOrders{store}, memUsers{store}, memAddresses{store}, nopAudit{}, verifier, cartCache, m, time.Second,
			)),
			Address: handler.NewAddressHandler(usecase.NewAddressUsecase(memAddresses{store})),
		},
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{url: srv.URL, gateway: gw, store: store}
}

// =====================
// tests
// =====================

func TestServer_CheckoutFlow(t *testing.T) {
	ts := newTestServer(t)
	c := &testClient{t: t, base: ts.url, bearer: bearerFor(t, 7, 1)}

	var cart usecase.CartResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 1}, &cart))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 1}, &cart))
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(2), cart.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(200).Equal(cart.GrandTotal))

	// another vendor is refused
	var errBody handler.ErrorResponse
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 2}, &errBody))
	assert.Equal(t, usecase.CodeVendorConflict, errBody.Code)

	var viewed usecase.CartResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/cart", nil, &viewed))
	assert.Equal(t, cart.Version, viewed.Version)

	var addr usecase.AddressDTO
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/addresses", handler.AddressRequest{
		Street: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	}, &addr))

	var intent usecase.IntentResponse
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/payments/intents", handler.CreateIntentRequest{}, &intent))
	assert.Equal(t, int64(20000), intent.Intent.AmountMinor)

	settlement, err := ts.gateway.Settle(intent.Intent.ID)
	require.NoError(t, err)

	var verified usecase.VerifySettlementResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/payments/verify", handler.VerifySettlementRequest{
		IntentID:     settlement.IntentID,
		SettlementID: settlement.SettlementID,
		Signature:    settlement.Signature,
	}, &verified))
	require.NotEmpty(t, verified.ProofToken)

	commit := handler.OrderCreateRequest{
		ProofToken: verified.ProofToken,
		CartID:     intent.CartID,
		AddressID:  addr.ID,
		VendorID:   10,
		Total:      decimal.NewFromInt(200),
	}
	var order usecase.OrderResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/orders", commit, &order))
	assert.True(t, decimal.NewFromInt(200).Equal(order.Total))
	assert.Equal(t, settlement.SettlementID, order.PaymentID)
	assert.Equal(t, "Pune", order.Address.City)

	// replaying the same payment returns the same order
	var replay usecase.OrderResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/orders", commit, &replay))
	assert.Equal(t, order.ID, replay.ID)

	// the cart was emptied and the cache invalidated
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/cart", nil, &viewed))
	assert.Empty(t, viewed.Lines)

	var list usecase.OrderListResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/orders", nil, &list))
	require.Len(t, list.Items, 1)

	var got usecase.OrderResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/orders/"+order.ID, nil, &got))
	assert.Equal(t, order.ID, got.ID)
}

func TestServer_RejectsTamperedSettlement(t *testing.T) {
	ts := newTestServer(t)
	c := &testClient{t: t, base: ts.url, bearer: bearerFor(t, 7, 1)}

	var intent usecase.IntentResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 1}, nil))
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/payments/intents", handler.CreateIntentRequest{Currency: "inr"}, &intent))

	settlement, err := ts.gateway.Settle(intent.Intent.ID)
	require.NoError(t, err)

	sig := []byte(settlement.Signature)
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}

	req := handler.VerifySettlementRequest{
		IntentID:     settlement.IntentID,
		SettlementID: settlement.SettlementID,
		Signature:    string(sig),
	}
	var errBody handler.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/payments/verify", req, &errBody))
	assert.Equal(t, usecase.CodeInvalidSignature, errBody.Code)

	// rejection is final for this settlement
	req.Signature = settlement.Signature
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/payments/verify", req, &errBody))

	// a forged proof token cannot commit an order
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/api/orders", handler.OrderCreateRequest{
		ProofToken: "forged", CartID: intent.CartID, AddressID: 1,
	}, &errBody))
	assert.Equal(t, usecase.CodePaymentNotVerified, errBody.Code)
	assert.Empty(t, ts.store.orders)
}

func TestServer_AuthAndValidation(t *testing.T) {
	ts := newTestServer(t)

	anon := &testClient{t: t, base: ts.url}
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/cart", nil, nil))
	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/healthz", nil, nil))

	// token version bumped by a logout elsewhere
	stale := &testClient{t: t, base: ts.url, bearer: bearerFor(t, 7, 0)}
	assert.Equal(t, http.StatusUnauthorized, stale.do(http.MethodGet, "/api/cart", nil, nil))

	c := &testClient{t: t, base: ts.url, bearer: bearerFor(t, 7, 1)}
	var errBody handler.ErrorResponse

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/cart", nil, &errBody))
	assert.Equal(t, usecase.CodeNotFound, errBody.Code)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/cart/lines", map[string]int{"quantity": 1}, &errBody))
	assert.Equal(t, "product_id is required", errBody.Error)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPatch, "/api/cart/lines/x", map[string]int{}, &errBody))
	assert.Equal(t, "quantity is required", errBody.Error)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/orders", map[string]string{
		"proof_token": "t", "cart_id": "c", "address_id": "1",
	}, &errBody))

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/orders", map[string]interface{}{
		"proof_token": "t", "cart_id": "c", "address_id": 1, "total": "10.005",
	}, &errBody))
	assert.Equal(t, usecase.CodeValidation, errBody.Code)

	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/metrics", nil, nil))
}

func TestServer_CartChangedAfterPaymentCannotCommit(t *testing.T) {
	ts := newTestServer(t)
	c := &testClient{t: t, base: ts.url, bearer: bearerFor(t, 7, 1)}

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 1}, nil))

	var addr usecase.AddressDTO
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/addresses", handler.AddressRequest{
		Street: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	}, &addr))

	var intent usecase.IntentResponse
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/payments/intents", handler.CreateIntentRequest{}, &intent))
	settlement, err := ts.gateway.Settle(intent.Intent.ID)
	require.NoError(t, err)

	var verified usecase.VerifySettlementResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/payments/verify", handler.VerifySettlementRequest{
		IntentID:     settlement.IntentID,
		SettlementID: settlement.SettlementID,
		Signature:    settlement.Signature,
	}, &verified))

	// paid for one item, then grew the cart to ten
	var cart usecase.CartResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 1, Quantity: 9}, &cart))
	require.True(t, decimal.NewFromInt(1000).Equal(cart.GrandTotal))

	var errBody handler.ErrorResponse
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/orders", handler.OrderCreateRequest{
		ProofToken: verified.ProofToken,
		CartID:     intent.CartID,
		AddressID:  addr.ID,
		VendorID:   10,
		Total:      cart.GrandTotal,
	}, &errBody))
	assert.Equal(t, usecase.CodeTotalMismatch, errBody.Code)
	assert.Empty(t, ts.store.orders)

	var viewed usecase.CartResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/cart", nil, &viewed))
	require.Len(t, viewed.Lines, 1)
	assert.Equal(t, int64(10), viewed.Lines[0].Quantity)
}

func TestServer_QuantityIsCapped(t *testing.T) {
	ts := newTestServer(t)
	c := &testClient{t: t, base: ts.url, bearer: bearerFor(t, 7, 1)}

	var errBody handler.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/cart/lines", map[string]int64{
		"product_id": 1, "quantity": math.MaxInt64,
	}, &errBody))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/cart", nil, &errBody))

	var cart usecase.CartResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 1, Quantity: model.MaxLineQuantity}, &cart))
	require.Len(t, cart.Lines, 1)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/cart/lines", handler.AddLineRequest{ProductID: 1, Quantity: 1}, &errBody))
	assert.Equal(t, usecase.CodeInvalidQuantity, errBody.Code)

	var viewed usecase.CartResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/cart", nil, &viewed))
	assert.Equal(t, model.MaxLineQuantity, viewed.Lines[0].Quantity)
}
