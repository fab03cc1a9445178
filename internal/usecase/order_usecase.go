package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"foodcart/internal/domain/model"
	"foodcart/internal/metrics"
	"foodcart/internal/payment"
	"foodcart/internal/pkg/logging"
	repo "foodcart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// returned from inside the transaction when payment_id is already taken
var errPaymentAlreadyCommitted = errors.New("payment already committed")

// ProofParser turns a proof token back into a verified payment.
type ProofParser interface {
	ParseProof(token string) (payment.VerifiedPayment, error)
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	users     repo.UserRepository
	addresses repo.AddressRepository
	audit     repo.AuditLogRepository
	proofs    ProofParser
	cache     repo.CartCache
	metrics   *metrics.Metrics

	storeTimeout time.Duration
	ids          func() string
	now          func() time.Time
}

// DI. cache may be nil.
func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	users repo.UserRepository,
	addresses repo.AddressRepository,
	audit repo.AuditLogRepository,
	proofs ProofParser,
	cache repo.CartCache,
	m *metrics.Metrics,
	storeTimeout time.Duration,
) *OrderUsecase {
	if m == nil {
		m = metrics.NewNop()
	}
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		users:     users,
		addresses: addresses,
		audit:     audit,
		proofs:    proofs,
		cache:     cache,
		metrics:      m,
		storeTimeout: storeTimeout,
		ids:          uuid.NewString,
		now:          time.Now,
	}
}

type CommitOrderInput struct {
	CartID    string
	UserID    int64
	AddressID int64
	// 0 skips the check
	VendorID int64
	// zero skips the check; never stored
	ClaimedTotal decimal.Decimal
}

type CommitOrderRequest struct {
	ProofToken   string
	CartID       string
	AddressID    int64
	VendorID     int64
	ClaimedTotal decimal.Decimal
}

type OrderLineResponse struct {
	ProductID int64           `json:"product_id"`
	VendorID  int64           `json:"vendor_id"`
	Title     string          `json:"title"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderContact struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

type OrderAddress struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Landmark string `json:"landmark,omitempty"`
	Pincode  string `json:"pincode"`
}

type OrderResponse struct {
	ID        string              `json:"id"`
	IntentID  string              `json:"intent_id"`
	PaymentID string              `json:"payment_id"`
	VendorID  int64               `json:"vendor_id"`
	UserID    int64               `json:"user_id"`
	Total     decimal.Decimal     `json:"total"`
	Contact   OrderContact        `json:"contact"`
	Address   OrderAddress        `json:"address"`
	Items     []OrderLineResponse `json:"items"`
	CreatedAt time.Time           `json:"created_at"`
}

type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// CommitOrderWithToken parses the proof token and commits.
func (u *OrderUsecase) CommitOrderWithToken(ctx context.Context, userID int64, req CommitOrderRequest) (OrderResponse, error) {
	if userID <= 0 {
		return OrderResponse{}, errUnauthorized()
	}
	proof, err := u.proofs.ParseProof(req.ProofToken)
	if err != nil {
		return OrderResponse{}, newCodedError(http.StatusForbidden, CodePaymentNotVerified, "payment not verified")
	}
	return u.CommitOrder(ctx, proof, CommitOrderInput{
		CartID:       req.CartID,
		UserID:       userID,
		AddressID:    req.AddressID,
		VendorID:     req.VendorID,
		ClaimedTotal: req.ClaimedTotal,
	})
}

// CommitOrder turns the shopper's cart into an order paid by proof.
// The cart must still be the one the payment was priced from, at the same version and total.
// Committing the same payment twice returns the first order.
func (u *OrderUsecase) CommitOrder(ctx context.Context, proof payment.VerifiedPayment, in CommitOrderInput) (OrderResponse, error) {
	if proof.IsZero() {
		return OrderResponse{}, newCodedError(http.StatusForbidden, CodePaymentNotVerified, "payment not verified")
	}
	if in.UserID <= 0 || proof.UserID() != in.UserID {
		return OrderResponse{}, errUnauthorized()
	}
	if in.CartID == "" {
		return OrderResponse{}, errValidation("invalid cart_id")
	}
	if in.AddressID <= 0 {
		return OrderResponse{}, errValidation("invalid address_id")
	}

	log := logging.FromContext(ctx).With(
		zap.Int64("user_id", in.UserID),
		zap.String("payment_id", proof.PaymentID()),
		zap.String("cart_id", in.CartID),
	)

	ctx, cancel := boundStore(ctx, u.storeTimeout)
	defer cancel()

	user, err := u.users.FindByID(ctx, in.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderResponse{}, errNotFound("user")
	}
	if err != nil {
		return OrderResponse{}, errStore(err)
	}

	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderResponse{}, errNotFound("address")
	}
	if err != nil {
		return OrderResponse{}, errStore(err)
	}
	// someone else's address is reported as missing
	if addr.UserID != in.UserID {
		return OrderResponse{}, errNotFound("address")
	}

	var (
		out      model.Order
		replayed bool
	)
	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		// the store may run fn more than once
		out, replayed = model.Order{}, false

		existing, err := r.Orders().FindByPaymentID(ctx, proof.PaymentID())
		if err == nil {
			if existing.UserID != in.UserID {
				return NewHTTPError(http.StatusConflict, "payment already used")
			}
			out, replayed = existing, true
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return errStore(err)
		}

		cart, err := r.Carts().FindByID(ctx, in.CartID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("cart")
		}
		if err != nil {
			return errStore(err)
		}
		if cart.UserID != in.UserID {
			return errNotFound("cart")
		}
		if cart.IsEmpty() {
			return newCodedError(http.StatusBadRequest, CodeEmptyCart, "cart is empty")
		}
		if in.VendorID != 0 && in.VendorID != cart.VendorID {
			return errVendorConflict()
		}

		lines, total := model.OrderLinesFromCart(cart.Snapshot())
		if !in.ClaimedTotal.IsZero() && !in.ClaimedTotal.Equal(total) {
			return newCodedError(http.StatusConflict, CodeTotalMismatch, "total mismatch")
		}
		if !total.Equal(proof.Amount()) {
			log.Warn("cart total differs from paid amount",
				zap.String("total", total.String()), zap.String("paid", proof.Amount().String()))
			return newCodedError(http.StatusConflict, CodeTotalMismatch, "cart total differs from the paid amount")
		}
		if cart.ID != proof.CartID() || cart.Version != proof.CartVersion() {
			log.Warn("cart changed after payment",
				zap.String("paid_cart_id", proof.CartID()), zap.Int64("paid_version", proof.CartVersion()),
				zap.Int64("version", cart.Version))
			return newCodedError(http.StatusConflict, CodeCartChanged, "cart changed after payment")
		}

		order := model.Order{
			ID:        u.ids(),
			IntentID:  proof.IntentID(),
			PaymentID: proof.PaymentID(),
			VendorID:  cart.VendorID,
			UserID:    in.UserID,
			Total:     total,
			Items:     lines,
			CreatedAt: u.now().UTC(),
		}
		order.ContactSnapshot(*user)
		order.AddressSnapshot(addr)

		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return errPaymentAlreadyCommitted
			}
			return errStore(err)
		}

		cleared := cart.Clone()
		cleared.Clear()
		cleared.UpdatedAt = u.now()
		if _, err := r.Carts().Save(ctx, cleared, cart.Version); err != nil {
			if errors.Is(err, repo.ErrVersionConflict) {
				return NewHTTPError(http.StatusConflict, "cart changed during checkout, retry")
			}
			return errStore(err)
		}

		out = order
		return nil
	})

	// a concurrent commit of the same payment won; hand back its order
	if errors.Is(err, errPaymentAlreadyCommitted) {
		existing, ferr := u.orders.FindByPaymentID(ctx, proof.PaymentID())
		if ferr != nil {
			return OrderResponse{}, errStore(ferr)
		}
		if existing.UserID != in.UserID {
			return OrderResponse{}, NewHTTPError(http.StatusConflict, "payment already used")
		}
		out, replayed, err = existing, true, nil
	}
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderResponse{}, err
		}
		return OrderResponse{}, errStore(err)
	}

	if replayed {
		u.metrics.OrdersCommitted.WithLabelValues("replayed").Inc()
		log.Info("order commit replayed", zap.String("order_id", out.ID))
		return toOrderResponse(out), nil
	}

	u.metrics.OrdersCommitted.WithLabelValues("created").Inc()
	log.Info("order committed", zap.String("order_id", out.ID), zap.String("total", out.Total.String()))

	if u.cache != nil {
		if err := u.cache.Delete(ctx, in.UserID); err != nil {
			log.Warn("cart cache invalidation failed", zap.Error(err))
		}
	}
	u.auditCommitted(ctx, log, out)

	return toOrderResponse(out), nil
}

// ListOrders returns the shopper's orders, newest first.
func (u *OrderUsecase) ListOrders(ctx context.Context, userID int64, page, limit int) (OrderListResponse, error) {
	if userID <= 0 {
		return OrderListResponse{}, errUnauthorized()
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ctx, cancel := boundStore(ctx, u.storeTimeout)
	defer cancel()
	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListResponse{}, errStore(err)
	}

	items := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	return OrderListResponse{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetOrder returns one of the shopper's orders. Other shoppers' orders are not found.
func (u *OrderUsecase) GetOrder(ctx context.Context, userID int64, orderID string) (OrderResponse, error) {
	if userID <= 0 {
		return OrderResponse{}, errUnauthorized()
	}
	if orderID == "" {
		return OrderResponse{}, errValidation("invalid id")
	}

	ctx, cancel := boundStore(ctx, u.storeTimeout)
	defer cancel()
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderResponse{}, errNotFound("order")
	}
	if err != nil {
		return OrderResponse{}, errStore(err)
	}
	if o.UserID != userID {
		return OrderResponse{}, errNotFound("order")
	}
	return toOrderResponse(o), nil
}

func (u *OrderUsecase) auditCommitted(ctx context.Context, log *zap.Logger, o model.Order) {
	if u.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]string{
		"payment_id": o.PaymentID,
		"intent_id":  o.IntentID,
		"total":      o.Total.String(),
	})
	if err := u.audit.Create(ctx, model.AuditLog{
		ActorUserID:  o.UserID,
		Action:       model.AuditActionOrderCommitted,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   o.ID,
		DetailJSON:   string(detail),
		CreatedAt:    u.now().UTC(),
	}); err != nil {
		log.Error("audit order commit failed", zap.Error(err))
	}
}

func toOrderResponse(o model.Order) OrderResponse {
	items := make([]OrderLineResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderLineResponse{
			ProductID: it.ProductID,
			VendorID:  it.VendorID,
			Title:     it.Title,
			Image:     it.Image,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return OrderResponse{
		ID:        o.ID,
		IntentID:  o.IntentID,
		PaymentID: o.PaymentID,
		VendorID:  o.VendorID,
		UserID:    o.UserID,
		Total:     o.Total,
		Contact:   OrderContact{Name: o.Name, Email: o.Email, Mobile: o.Mobile},
		Address: OrderAddress{
			Street:   o.Street,
			City:     o.City,
			State:    o.State,
			Landmark: o.Landmark,
			Pincode:  o.Pincode,
		},
		Items:     items,
		CreatedAt: o.CreatedAt,
	}
}
