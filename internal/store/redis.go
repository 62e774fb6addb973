package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wagerline/chatbet/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for market and user reads. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMarket(ctx context.Context, id int64) (*model.Market, error) {
	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	// Cache miss: read from primary.
	m, err := s.primary.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheMarket(ctx, m)
	return m, nil
}

func (s *CachedStore) GetUser(ctx context.Context, waID string) (*model.User, error) {
	data, err := s.rdb.Get(ctx, userKey(waID)).Bytes()
	if err == nil {
		var u model.User
		if json.Unmarshal(data, &u) == nil {
			return &u, nil
		}
	}

	u, err := s.primary.GetUser(ctx, waID)
	if err != nil {
		return nil, err
	}

	s.cacheUser(ctx, u)
	return u, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) GetOrCreateUser(ctx context.Context, waID string) (*model.User, error) {
	// Always hits the primary: creation must be durable before any
	// outbound message references the user.
	u, err := s.primary.GetOrCreateUser(ctx, waID)
	if err != nil {
		return nil, err
	}
	s.cacheUser(ctx, u)
	return u, nil
}

func (s *CachedStore) CreateMarket(ctx context.Context, m *model.Market) error {
	if err := s.primary.CreateMarket(ctx, m); err != nil {
		return err
	}
	s.cacheMarket(ctx, m)
	return nil
}

func (s *CachedStore) CloseMarket(ctx context.Context, id int64) error {
	if err := s.primary.CloseMarket(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(id))
	return nil
}

func (s *CachedStore) RecordFill(ctx context.Context, u *model.User, m *model.Market, b *model.Bet) error {
	if err := s.primary.RecordFill(ctx, u, m, b); err != nil {
		return err
	}
	// Invalidate; next read re-populates from the primary.
	s.rdb.Del(ctx, marketKey(m.ID), userKey(u.WaID))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	return s.primary.ListMarkets(ctx)
}

func (s *CachedStore) GetBetsByUser(ctx context.Context, waID string) ([]model.Bet, error) {
	return s.primary.GetBetsByUser(ctx, waID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheMarket(ctx context.Context, m *model.Market) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketKey(m.ID), data, s.ttl)
	}
}

func (s *CachedStore) cacheUser(ctx context.Context, u *model.User) {
	if data, err := json.Marshal(u); err == nil {
		s.rdb.Set(ctx, userKey(u.WaID), data, s.ttl)
	}
}

func marketKey(id int64) string  { return fmt.Sprintf("market:%d", id) }
func userKey(waID string) string { return fmt.Sprintf("user:%s", waID) }
