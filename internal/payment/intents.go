package payment

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Checkout is what an intent pays for: one shopper's cart at one version.
type Checkout struct {
	UserID      int64
	CartID      string
	CartVersion int64
	Amount      decimal.Decimal
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// IntentRecord binds a gateway intent to the checkout it was opened for.
type IntentRecord struct {
	IntentID    string          `json:"intent_id"`
	UserID      int64           `json:"user_id"`
	CartID      string          `json:"cart_id"`
	CartVersion int64           `json:"cart_version"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// IntentStore keeps intent records until their settlement is verified.
type IntentStore interface {
	Put(ctx context.Context, rec IntentRecord) error
	// Get returns ErrUnknownIntent when nothing is stored.
	Get(ctx context.Context, intentID string) (IntentRecord, error)
}

// MemoryIntentStore is a process-local IntentStore for the sandbox gateway and tests.
type MemoryIntentStore struct {
	mu      sync.Mutex
	records map[string]IntentRecord
}

func NewMemoryIntentStore() *MemoryIntentStore {
	return &MemoryIntentStore{records: map[string]IntentRecord{}}
}

func (s *MemoryIntentStore) Put(_ context.Context, rec IntentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.IntentID] = rec
	return nil
}

func (s *MemoryIntentStore) Get(_ context.Context, intentID string) (IntentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[intentID]
	if !ok {
		return IntentRecord{}, ErrUnknownIntent
	}
	return rec, nil
}
