package usecase

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"foodcart/internal/domain/model"
	"foodcart/internal/metrics"
	"foodcart/internal/pkg/logging"
	repo "foodcart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// optimistic update attempts before giving up with 503
const maxCartAttempts = 5

// CartUsecase owns the shopper's cart. Every change is a read-modify-write guarded by the cart version.
type CartUsecase struct {
	carts    repo.CartRepository
	products repo.ProductRepository
	cache    repo.CartCache
	metrics  *metrics.Metrics

	storeTimeout time.Duration
	ids          func() string
	now          func() time.Time
	sfg          singleflight.Group
}

// DI. cache may be nil.
func NewCartUsecase(
	carts repo.CartRepository,
	products repo.ProductRepository,
	cache repo.CartCache,
	m *metrics.Metrics,
	storeTimeout time.Duration,
) *CartUsecase {
	if m == nil {
		m = metrics.NewNop()
	}
	return &CartUsecase{
		carts:        carts,
		products:     products,
		cache:        cache,
		metrics:      m,
		storeTimeout: storeTimeout,
		ids:          uuid.NewString,
		now:          time.Now,
	}
}

type CartLineResponse struct {
	ID        string          `json:"id"`
	ProductID int64           `json:"product_id"`
	VendorID  int64           `json:"vendor_id"`
	Title     string          `json:"title"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	ID         string             `json:"id"`
	VendorID   int64              `json:"vendor_id"`
	Lines      []CartLineResponse `json:"lines"`
	GrandTotal decimal.Decimal    `json:"grand_total"`
	Version    int64              `json:"version"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type AddLineInput struct {
	ProductID int64
	// increment; 0 means 1, at most model.MaxLineQuantity
	Quantity int64
}

// AddLine adds a product, or increments its line. Creates the cart on first use.
func (u *CartUsecase) AddLine(ctx context.Context, userID int64, in AddLineInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, errUnauthorized()
	}
	if in.ProductID <= 0 {
		return CartResponse{}, errValidation("invalid product_id")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 || in.Quantity > model.MaxLineQuantity {
		return CartResponse{}, errInvalidQuantity()
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, errNotFound("product")
	}
	if err != nil {
		return CartResponse{}, errStore(err)
	}
	if !p.IsActive {
		return CartResponse{}, errNotFound("product")
	}

	cart, err := u.mutate(ctx, userID, "add", true, func(c *model.Cart) error {
		return c.AddProduct(u.ids(), p, in.Quantity)
	})
	if err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(cart), nil
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (u *CartUsecase) UpdateQuantity(ctx context.Context, userID int64, lineID string, quantity int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, errUnauthorized()
	}
	if lineID == "" {
		return CartResponse{}, errValidation("invalid line id")
	}
	if quantity < 0 || quantity > model.MaxLineQuantity {
		return CartResponse{}, errInvalidQuantity()
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	cart, err := u.mutate(ctx, userID, "update", false, func(c *model.Cart) error {
		return c.SetQuantity(lineID, quantity)
	})
	if err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(cart), nil
}

// RemoveLine drops a line. The emptied cart is kept.
func (u *CartUsecase) RemoveLine(ctx context.Context, userID int64, lineID string) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, errUnauthorized()
	}
	if lineID == "" {
		return CartResponse{}, errValidation("invalid line id")
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	cart, err := u.mutate(ctx, userID, "remove", false, func(c *model.Cart) error {
		return c.RemoveLine(lineID)
	})
	if err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(cart), nil
}

// ViewCart reads through the cache. Concurrent misses for one shopper share a single store read.
func (u *CartUsecase) ViewCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, errUnauthorized()
	}

	// the flight is shared, so it runs detached from any one caller
	shared := context.WithoutCancel(ctx)
	ch := u.sfg.DoChan(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		ctx, cancel := u.withTimeout(shared)
		defer cancel()
		return u.loadCart(ctx, userID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return CartResponse{}, errStore(ctx.Err())
	case res = <-ch:
	}
	if errors.Is(res.Err, repo.ErrNotFound) {
		return CartResponse{}, errNotFound("cart")
	}
	if res.Err != nil {
		return CartResponse{}, errStore(res.Err)
	}
	return toCartResponse(res.Val.(model.Cart)), nil
}

func (u *CartUsecase) loadCart(ctx context.Context, userID int64) (model.Cart, error) {
	log := logging.FromContext(ctx)

	if u.cache != nil {
		cart, err := u.cache.Get(ctx, userID)
		if err == nil {
			u.metrics.CartCache.WithLabelValues("hit").Inc()
			return cart, nil
		}
		if !errors.Is(err, repo.ErrCacheMiss) {
			log.Warn("cart cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		u.metrics.CartCache.WithLabelValues("miss").Inc()
	}

	cart, err := u.carts.FindByUserID(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, cart); err != nil {
			log.Warn("cart cache set failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return cart, nil
}

// mutate loads the cart, applies fn to a copy and saves it if nobody else wrote in between.
func (u *CartUsecase) mutate(ctx context.Context, userID int64, op string, create bool, fn func(c *model.Cart) error) (model.Cart, error) {
	log := logging.FromContext(ctx).With(zap.Int64("user_id", userID), zap.String("op", op))

	for attempt := 1; attempt <= maxCartAttempts; attempt++ {
		current, err := u.carts.FindByUserID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			if !create {
				u.metrics.CartMutations.WithLabelValues(op, "not_found").Inc()
				return model.Cart{}, errNotFound("cart")
			}

			fresh := model.NewCart(u.ids(), userID, u.now())
			if err := fn(&fresh); err != nil {
				return model.Cart{}, u.domainError(op, err)
			}
			err := u.carts.Create(ctx, fresh)
			if errors.Is(err, repo.ErrDuplicate) {
				// another request created it first
				u.metrics.CartRetries.Inc()
				continue
			}
			if err != nil {
				log.Error("create cart failed", zap.Error(err))
				return model.Cart{}, errStore(err)
			}
			u.committed(ctx, log, op, userID)
			return fresh, nil
		}
		if err != nil {
			log.Error("load cart failed", zap.Error(err))
			return model.Cart{}, errStore(err)
		}

		next := current.Clone()
		if err := fn(&next); err != nil {
			return model.Cart{}, u.domainError(op, err)
		}
		next.UpdatedAt = u.now()

		saved, err := u.carts.Save(ctx, next, current.Version)
		if errors.Is(err, repo.ErrVersionConflict) || errors.Is(err, repo.ErrNotFound) {
			u.metrics.CartRetries.Inc()
			log.Debug("cart version conflict, retrying", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			log.Error("save cart failed", zap.Error(err))
			return model.Cart{}, errStore(err)
		}
		u.committed(ctx, log, op, userID)
		return saved, nil
	}

	u.metrics.CartMutations.WithLabelValues(op, "contended").Inc()
	log.Warn("cart update gave up after concurrent writers", zap.Int("attempts", maxCartAttempts))
	return model.Cart{}, &HTTPError{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeStoreUnavailable,
		Message: "cart is being updated concurrently, retry",
		Err:     repo.ErrVersionConflict,
	}
}

func (u *CartUsecase) committed(ctx context.Context, log *zap.Logger, op string, userID int64) {
	u.metrics.CartMutations.WithLabelValues(op, "ok").Inc()
	if u.cache == nil {
		return
	}
	if err := u.cache.Delete(ctx, userID); err != nil {
		log.Warn("cart cache invalidation failed", zap.Error(err))
	}
}

func (u *CartUsecase) domainError(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrVendorConflict):
		u.metrics.CartMutations.WithLabelValues(op, "vendor_conflict").Inc()
		return errVendorConflict()
	case errors.Is(err, model.ErrLineNotFound):
		u.metrics.CartMutations.WithLabelValues(op, "not_found").Inc()
		return errNotFound("cart line")
	case errors.Is(err, model.ErrInvalidQuantity):
		u.metrics.CartMutations.WithLabelValues(op, "invalid").Inc()
		return errInvalidQuantity()
	default:
		return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
	}
}

func (u *CartUsecase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundStore(ctx, u.storeTimeout)
}

func toCartResponse(c model.Cart) CartResponse {
	lines := make([]CartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, CartLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			VendorID:  l.VendorID,
			Title:     l.Title,
			Image:     l.Image,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		})
	}
	return CartResponse{
		ID:         c.ID,
		VendorID:   c.VendorID,
		Lines:      lines,
		GrandTotal: c.GrandTotal,
		Version:    c.Version,
		UpdatedAt:  c.UpdatedAt,
	}
}
