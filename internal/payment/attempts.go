package payment

import (
	"context"
	"sync"
)

// AttemptState is the terminal verdict recorded for one (intent, settlement) pair.
type AttemptState string

const (
	AttemptNone     AttemptState = ""
	AttemptVerified AttemptState = "verified"
	AttemptRejected AttemptState = "rejected"
)

// AttemptStore keeps the first verdict per settlement. Later Record calls never overwrite it.
type AttemptStore interface {
	Get(ctx context.Context, key string) (AttemptState, error)
	// Record stores state if nothing is stored yet and returns whatever is stored afterwards.
	Record(ctx context.Context, key string, state AttemptState) (AttemptState, error)
}

func attemptKey(intentID, settlementID string) string {
	return intentID + "|" + settlementID
}

// MemoryAttemptStore is a process-local AttemptStore for the sandbox gateway and tests.
type MemoryAttemptStore struct {
	mu     sync.Mutex
	states map[string]AttemptState
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{states: map[string]AttemptState{}}
}

func (s *MemoryAttemptStore) Get(_ context.Context, key string) (AttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key], nil
}

func (s *MemoryAttemptStore) Record(_ context.Context, key string, state AttemptState) (AttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.states[key]; ok {
		return cur, nil
	}
	s.states[key] = state
	return state, nil
}
