package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"foodcart/internal/domain/model"

	"github.com/google/uuid"
)

// SandboxGateway is an in-process provider. It signs settlements with the same secret the Verifier checks.
type SandboxGateway struct {
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	intents map[string]model.PaymentIntent
}

func NewSandboxGateway(secret []byte) *SandboxGateway {
	return &SandboxGateway{
		secret:  secret,
		now:     time.Now,
		intents: map[string]model.PaymentIntent{},
	}
}

func (g *SandboxGateway) CreateIntent(ctx context.Context, req IntentRequest) (model.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return model.PaymentIntent{}, err
	}
	minor, err := ToMinorUnits(req.Amount)
	if err != nil {
		return model.PaymentIntent{}, err
	}

	intent := model.PaymentIntent{
		ID:          "order_" + shortID(),
		Amount:      fromMinorUnits(minor),
		AmountMinor: minor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      model.IntentStatusCreated,
		Notes:       req.Notes,
		CreatedAt:   g.now().UTC(),
	}

	g.mu.Lock()
	g.intents[intent.ID] = intent
	g.mu.Unlock()
	return intent, nil
}

// Settle pays the intent and returns the signed settlement the shopper's client would receive.
func (g *SandboxGateway) Settle(intentID string) (model.Settlement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return model.Settlement{}, fmt.Errorf("%w: unknown intent %s", ErrGateway, intentID)
	}
	intent.Status = model.IntentStatusPaid
	g.intents[intentID] = intent

	settlementID := "pay_" + shortID()
	return model.Settlement{
		IntentID:     intentID,
		SettlementID: settlementID,
		Signature:    Sign(g.secret, intentID, settlementID),
	}, nil
}

func (g *SandboxGateway) Intent(intentID string) (model.PaymentIntent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	return intent, ok
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
