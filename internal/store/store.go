// Package store defines the persistence interface for the ledger.
// Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing and development).
package store

import (
	"context"
	"errors"

	"github.com/wagerline/chatbet/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. The store exclusively owns the
// users, markets, and bets tables; user and market rows are mutated
// only inside the fill transaction.
type Store interface {
	// --- Users ---

	// GetOrCreateUser returns the user record, creating it with the
	// default starting balance on first contact. Idempotent — repeat
	// calls return the existing record and never reset the balance.
	GetOrCreateUser(ctx context.Context, waID string) (*model.User, error)

	// GetUser retrieves a user by sender id.
	GetUser(ctx context.Context, waID string) (*model.User, error)

	// --- Markets ---

	// CreateMarket persists a new market and assigns its id.
	CreateMarket(ctx context.Context, m *model.Market) error

	// GetMarket retrieves a market by id. Returns ErrNotFound.
	GetMarket(ctx context.Context, id int64) (*model.Market, error)

	// ListMarkets returns all markets ordered by ascending id.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// CloseMarket stops new bets on a market (is_open → false).
	CloseMarket(ctx context.Context, id int64) error

	// --- Fills ---

	// RecordFill persists the updated user balance, the updated market
	// quotes, and the new bet as a single atomic unit — all three
	// writes succeed together or none do. Assigns the bet's id.
	RecordFill(ctx context.Context, u *model.User, m *model.Market, b *model.Bet) error

	// GetBetsByUser returns a user's fills ordered by fill time.
	GetBetsByUser(ctx context.Context, waID string) ([]model.Bet, error)
}
