// Package bet validates and executes bets against the ledger store and
// the pricing engine.
//
// All monetary values use shopspring/decimal — never float64 for money.
package bet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wagerline/chatbet/internal/feed"
	"github.com/wagerline/chatbet/internal/metrics"
	"github.com/wagerline/chatbet/internal/model"
	"github.com/wagerline/chatbet/internal/pricing"
	"github.com/wagerline/chatbet/internal/store"
)

// DefaultQty is the quantity used when the caller does not specify one
// (button-tap bets).
const DefaultQty = 10

// Service executes bets. The read-modify-write on a user's balance and
// a market's quotes is serialized by keyed mutexes, always acquired
// user-then-market (single-instance). For horizontal scaling the
// Postgres fill transaction takes row locks, but the debit itself is
// computed in-process, so run one writer instance.
type Service struct {
	store   store.Store
	pricing *pricing.Engine
	hub     *feed.Hub // optional fill-feed hub for broadcasts

	mu          sync.Mutex
	userLocks   map[string]*sync.Mutex
	marketLocks map[int64]*sync.Mutex
}

// NewService creates a new betting service.
// Pass nil for hub if fill broadcasting is not needed.
func NewService(st store.Store, eng *pricing.Engine, hub *feed.Hub) *Service {
	return &Service{
		store:       st,
		pricing:     eng,
		hub:         hub,
		userLocks:   make(map[string]*sync.Mutex),
		marketLocks: make(map[int64]*sync.Mutex),
	}
}

// Fill is the result of a successfully placed bet.
type Fill struct {
	User   *model.User
	Market *model.Market
	Bet    *model.Bet
}

// userLock returns the mutex serializing fills for one user.
func (s *Service) userLock(waID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.userLocks[waID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[waID] = l
	}
	return l
}

// marketLock returns the mutex serializing fills for one market.
func (s *Service) marketLock(marketID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.marketLocks[marketID]
	if !ok {
		l = &sync.Mutex{}
		s.marketLocks[marketID] = l
	}
	return l
}

// PlaceBet validates and executes a bet for qty units of side on the
// given market. On success the user's balance is debited, the market's
// quotes are moved by the pricing engine, and an immutable bet record
// is appended — all committed atomically by the store. Every failure
// leaves state unchanged and maps to one of the typed errors in this
// package.
func (s *Service) PlaceBet(ctx context.Context, waID string, marketID int64, side string, qty int64) (*Fill, error) {
	// Serialize the read-modify-write on the balance and the quotes.
	// Lock order is always user then market to avoid deadlock.
	ul := s.userLock(waID)
	ul.Lock()
	defer ul.Unlock()
	ml := s.marketLock(marketID)
	ml.Lock()
	defer ml.Unlock()

	user, err := s.store.GetOrCreateUser(ctx, waID)
	if err != nil {
		return nil, err
	}

	market, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.BetRejections.WithLabelValues("not_found").Inc()
			return nil, ErrMarketNotFound
		}
		return nil, err
	}
	if !market.IsOpen {
		metrics.BetRejections.WithLabelValues("closed").Inc()
		return nil, ErrMarketClosed
	}

	normSide, err := model.NormalizeSide(side)
	if err != nil {
		metrics.BetRejections.WithLabelValues("invalid_side").Inc()
		return nil, ErrInvalidSide
	}
	if qty <= 0 {
		metrics.BetRejections.WithLabelValues("invalid_qty").Inc()
		return nil, ErrInvalidQuantity
	}

	price := market.Quote(normSide)
	cost := s.pricing.Cost(market, normSide, qty)
	if user.Balance.LessThan(cost) {
		metrics.BetRejections.WithLabelValues("insufficient_balance").Inc()
		return nil, &InsufficientBalanceError{Need: cost, Have: user.Balance}
	}

	user.Balance = user.Balance.Sub(cost)
	if err := s.pricing.Apply(market, normSide, qty); err != nil {
		return nil, err
	}

	// The bet records the pre-impact quote as its fill price.
	b := &model.Bet{
		WaID:     waID,
		MarketID: market.ID,
		Side:     normSide,
		Price:    price,
		Qty:      qty,
		Ts:       time.Now().Unix(),
	}

	if err := s.store.RecordFill(ctx, user, market, b); err != nil {
		return nil, err
	}

	metrics.BetsTotal.WithLabelValues(normSide).Inc()
	slog.Info("bet filled",
		"user", waID,
		"market", market.ID,
		"side", normSide,
		"qty", qty,
		"price", price.String(),
		"cost", cost.String(),
		"balance", user.Balance.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(feed.FillMessage{
			Type:     "bet_filled",
			MarketID: market.ID,
			Question: market.Question,
			Side:     normSide,
			Qty:      qty,
			Price:    price.StringFixed(2),
			PriceYes: market.YesPrice.StringFixed(2),
			PriceNo:  market.NoPrice.StringFixed(2),
		})
	}

	return &Fill{User: user, Market: market, Bet: b}, nil
}
