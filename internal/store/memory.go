package store

import (
	"context"
	"sync"

	"github.com/wagerline/chatbet/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*model.User
	markets      map[int64]*model.Market
	bets         []model.Bet
	nextMarketID int64
	nextBetID    int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*model.User),
		markets:      make(map[int64]*model.Market),
		nextMarketID: 1,
		nextBetID:    1,
	}
}

func (s *MemoryStore) GetOrCreateUser(_ context.Context, waID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[waID]; ok {
		copy := *u
		return &copy, nil
	}

	u := &model.User{WaID: waID, Balance: model.DefaultBalance}
	s.users[waID] = u
	copy := *u
	return &copy, nil
}

func (s *MemoryStore) GetUser(_ context.Context, waID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[waID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.nextMarketID
	s.nextMarketID++

	// Store a copy to avoid external mutation.
	copy := *m
	s.markets[m.ID] = &copy
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id int64) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *m
	return &copy, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for id := int64(1); id < s.nextMarketID; id++ {
		if m, ok := s.markets[id]; ok {
			markets = append(markets, *m)
		}
	}
	return markets, nil
}

func (s *MemoryStore) CloseMarket(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return ErrNotFound
	}
	m.IsOpen = false
	return nil
}

// RecordFill applies all three writes under one lock so readers never
// observe a partial fill.
func (s *MemoryStore) RecordFill(_ context.Context, u *model.User, m *model.Market, b *model.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	su, ok := s.users[u.WaID]
	if !ok {
		return ErrNotFound
	}
	sm, ok := s.markets[m.ID]
	if !ok {
		return ErrNotFound
	}

	su.Balance = u.Balance
	sm.YesPrice = m.YesPrice
	sm.NoPrice = m.NoPrice

	b.ID = s.nextBetID
	s.nextBetID++
	s.bets = append(s.bets, *b)
	return nil
}

func (s *MemoryStore) GetBetsByUser(_ context.Context, waID string) ([]model.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Bet
	for _, b := range s.bets {
		if b.WaID == waID {
			result = append(result, b)
		}
	}
	return result, nil
}
