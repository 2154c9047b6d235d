package intent

import (
	"context"
	"sync"
	"time"
)

const (
	// IntentTTL is how long an abandoned intent stays readable for
	// reconciliation before the sweeper drops it.
	IntentTTL = 30 * time.Minute

	// CleanupInterval is how often the background sweep runs.
	CleanupInterval = time.Minute
)

// Store keeps payment intents for the duration of a checkout session.
type Store interface {
	Save(ctx context.Context, pi *PaymentIntent) error
	Get(ctx context.Context, id string) (*PaymentIntent, error)
}

// MemoryStore implements Store with in-memory storage. Abandoned
// intents are never resumed, so session-scoped storage is enough; a
// background sweep expires old terminal and stale entries.
type MemoryStore struct {
	mu      sync.RWMutex
	intents map[string]*PaymentIntent

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		intents:     make(map[string]*PaymentIntent),
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireOld()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) expireOld() {
	cutoff := time.Now().Add(-IntentTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, pi := range s.intents {
		if pi.UpdatedAt.Before(cutoff) {
			delete(s.intents, id)
		}
	}
}

func (s *MemoryStore) Save(_ context.Context, pi *PaymentIntent) error {
	cp := *pi

	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pi, ok := s.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *pi
	return &cp, nil
}

func (s *MemoryStore) Close() {
	close(s.stopCleanup)
	s.wg.Wait()
}
