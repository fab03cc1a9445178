package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodcart/internal/domain/model"
	"foodcart/internal/metrics"
	"foodcart/internal/pkg/logging"
	"foodcart/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VerifiedPayment proves that a settlement signature was checked by this package.
// Its fields are unexported so no other package can build one.
type VerifiedPayment struct {
	intentID     string
	settlementID string
	userID       int64
	cartID       string
	cartVersion  int64
	amount       decimal.Decimal
}

func (p VerifiedPayment) IntentID() string     { return p.intentID }
func (p VerifiedPayment) SettlementID() string { return p.settlementID }

// PaymentID is the settlement id, the key orders are deduplicated on.
func (p VerifiedPayment) PaymentID() string { return p.settlementID }
func (p VerifiedPayment) UserID() int64     { return p.userID }

// CartID and CartVersion name the cart state the intent was priced from.
func (p VerifiedPayment) CartID() string     { return p.cartID }
func (p VerifiedPayment) CartVersion() int64 { return p.cartVersion }

// Amount is what the shopper paid.
func (p VerifiedPayment) Amount() decimal.Decimal { return p.amount }
func (p VerifiedPayment) IsZero() bool            { return p.settlementID == "" }

type Verifier struct {
	secret   []byte
	proofKey []byte
	gateway  Gateway
	attempts AttemptStore
	intents  IntentStore

	audit        repository.AuditLogRepository
	metrics      *metrics.Metrics
	proofTTL     time.Duration
	storeTimeout time.Duration
	now          func() time.Time
}

type Option func(*Verifier)

func WithAuditLog(repo repository.AuditLogRepository) Option {
	return func(v *Verifier) { v.audit = repo }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

func WithProofTTL(ttl time.Duration) Option {
	return func(v *Verifier) { v.proofTTL = ttl }
}

// WithStoreTimeout bounds every attempt and intent store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.storeTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier takes the shared signing secret explicitly.
func NewVerifier(secret []byte, gateway Gateway, attempts AttemptStore, intents IntentStore, opts ...Option) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("payment: empty signing secret")
	}
	if gateway == nil || attempts == nil || intents == nil {
		return nil, errors.New("payment: gateway, attempt store and intent store are required")
	}

	v := &Verifier{
		secret:   secret,
		proofKey: []byte(Sign(secret, "proof-token", "v1")),
		gateway:  gateway,
		attempts: attempts,
		intents:  intents,
		proofTTL: 15 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.metrics == nil {
		v.metrics = metrics.NewNop()
	}
	return v, nil
}

// CreateIntent asks the gateway for an intent of c.Amount and records which cart it pays for.
func (v *Verifier) CreateIntent(ctx context.Context, c Checkout) (model.PaymentIntent, error) {
	if c.UserID <= 0 || c.CartID == "" {
		return model.PaymentIntent{}, errors.New("payment: checkout needs a shopper and a cart")
	}
	if _, err := ToMinorUnits(c.Amount); err != nil {
		v.metrics.GatewayCalls.WithLabelValues("invalid_amount").Inc()
		return model.PaymentIntent{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	currency := strings.ToUpper(strings.TrimSpace(c.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	log := logging.FromContext(ctx).With(zap.Int64("user_id", c.UserID), zap.String("cart_id", c.CartID))

	intent, err := v.gateway.CreateIntent(ctx, IntentRequest{
		Amount:   c.Amount,
		Currency: currency,
		Receipt:  c.Receipt,
		Notes:    c.Notes,
	})
	if err != nil {
		v.metrics.GatewayCalls.WithLabelValues("error").Inc()
		log.Error("create payment intent failed", zap.Error(err))
		if errors.Is(err, ErrGateway) {
			return model.PaymentIntent{}, err
		}
		return model.PaymentIntent{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if !intent.Amount.Equal(c.Amount) {
		v.metrics.GatewayCalls.WithLabelValues("amount_mismatch").Inc()
		log.Error("gateway intent amount differs", zap.String("intent_id", intent.ID),
			zap.String("want", c.Amount.String()), zap.String("got", intent.Amount.String()))
		return model.PaymentIntent{}, fmt.Errorf("%w: intent %s amount %s, want %s", ErrGateway, intent.ID, intent.Amount, c.Amount)
	}
	v.metrics.GatewayCalls.WithLabelValues("ok").Inc()

	sctx, cancel := v.storeContext(ctx)
	defer cancel()
	if err := v.intents.Put(sctx, IntentRecord{
		IntentID:    intent.ID,
		UserID:      c.UserID,
		CartID:      c.CartID,
		CartVersion: c.CartVersion,
		Amount:      c.Amount,
		Currency:    intent.Currency,
	}); err != nil {
		return model.PaymentIntent{}, fmt.Errorf("record payment intent: %w", err)
	}
	return intent, nil
}

// VerifySettlement checks the settlement signature for userID.
// Only the shopper who opened the intent can verify its settlement.
// The first verdict per settlement is final: once rejected, the settlement is never accepted.
func (v *Verifier) VerifySettlement(ctx context.Context, userID int64, s model.Settlement) (VerifiedPayment, error) {
	log := logging.FromContext(ctx).With(
		zap.String("intent_id", s.IntentID),
		zap.String("settlement_id", s.SettlementID),
		zap.Int64("user_id", userID),
	)

	if s.IntentID == "" || s.SettlementID == "" || s.Signature == "" {
		v.metrics.SettlementVerdicts.WithLabelValues("malformed").Inc()
		return VerifiedPayment{}, ErrInvalidSignature
	}

	ctx, cancel := v.storeContext(ctx)
	defer cancel()

	// a foreign or unknown intent is refused without recording a verdict,
	// so nobody but the owner can burn a settlement
	rec, err := v.intents.Get(ctx, s.IntentID)
	if errors.Is(err, ErrUnknownIntent) {
		v.metrics.SettlementVerdicts.WithLabelValues("unknown_intent").Inc()
		log.Warn("settlement for unknown intent")
		return VerifiedPayment{}, ErrInvalidSignature
	}
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("read payment intent: %w", err)
	}
	if rec.UserID != userID {
		v.metrics.SettlementVerdicts.WithLabelValues("foreign_intent").Inc()
		log.Warn("settlement presented by another shopper", zap.Int64("owner_id", rec.UserID))
		v.auditRejection(ctx, log, userID, s, "foreign_intent")
		return VerifiedPayment{}, ErrInvalidSignature
	}

	key := attemptKey(s.IntentID, s.SettlementID)
	state, err := v.attempts.Get(ctx, key)
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("read settlement attempt: %w", err)
	}
	if state == AttemptRejected {
		v.metrics.SettlementVerdicts.WithLabelValues("replayed_rejection").Inc()
		log.Warn("settlement already rejected")
		return VerifiedPayment{}, ErrInvalidSignature
	}

	if !signatureMatches(v.secret, s.IntentID, s.SettlementID, s.Signature) {
		if state == AttemptNone {
			if _, err := v.attempts.Record(ctx, key, AttemptRejected); err != nil {
				log.Error("record rejected settlement failed", zap.Error(err))
			}
		}
		v.metrics.SettlementVerdicts.WithLabelValues("rejected").Inc()
		log.Warn("settlement signature mismatch")
		v.auditRejection(ctx, log, userID, s, "signature_mismatch")
		return VerifiedPayment{}, ErrInvalidSignature
	}

	stored, err := v.attempts.Record(ctx, key, AttemptVerified)
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("record settlement attempt: %w", err)
	}
	if stored == AttemptRejected {
		// a concurrent bad attempt won the race
		v.metrics.SettlementVerdicts.WithLabelValues("replayed_rejection").Inc()
		return VerifiedPayment{}, ErrInvalidSignature
	}

	v.metrics.SettlementVerdicts.WithLabelValues("verified").Inc()
	log.Info("settlement verified", zap.String("cart_id", rec.CartID), zap.String("amount", rec.Amount.String()))
	return VerifiedPayment{
		intentID:     s.IntentID,
		settlementID: s.SettlementID,
		userID:       userID,
		cartID:       rec.CartID,
		cartVersion:  rec.CartVersion,
		amount:       rec.Amount,
	}, nil
}

// Rejections returns the settlements userID presented for intentID that were refused, oldest first.
func (v *Verifier) Rejections(ctx context.Context, userID int64, intentID string) ([]model.AuditLog, error) {
	if v.audit == nil {
		return nil, nil
	}
	ctx, cancel := v.storeContext(ctx)
	defer cancel()
	return v.audit.List(ctx, repository.AuditLogFilter{
		ActorUserID:  userID,
		Action:       model.AuditActionSignatureRejected,
		ResourceType: model.AuditResourcePayment,
		ResourceID:   intentID,
	})
}

func (v *Verifier) auditRejection(ctx context.Context, log *zap.Logger, userID int64, s model.Settlement, reason string) {
	if v.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]string{
		"intent_id":     s.IntentID,
		"settlement_id": s.SettlementID,
		"reason":        reason,
	})
	if err := v.audit.Create(ctx, model.AuditLog{
		ActorUserID:  userID,
		Action:       model.AuditActionSignatureRejected,
		ResourceType: model.AuditResourcePayment,
		ResourceID:   s.IntentID,
		DetailJSON:   string(detail),
		CreatedAt:    v.now().UTC(),
	}); err != nil {
		log.Error("audit signature rejection failed", zap.Error(err))
	}
}

func (v *Verifier) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.storeTimeout)
}
