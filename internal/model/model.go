// Package model defines the core domain types shared across the bot.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sides of a binary market.
const (
	SideYes = "YES"
	SideNo  = "NO"
)

// ErrInvalidSide is returned when a side is neither YES nor NO.
var ErrInvalidSide = errors.New("model: side must be YES or NO")

// DefaultBalance is the play-money balance granted to every new user.
var DefaultBalance = decimal.NewFromInt(1000)

// NormalizeSide uppercases a side string and validates it.
func NormalizeSide(side string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(side))
	if s != SideYes && s != SideNo {
		return "", ErrInvalidSide
	}
	return s, nil
}

// User is a chat participant identified by the messaging platform's
// opaque sender id. Created lazily on first contact, never deleted.
type User struct {
	WaID    string          `json:"wa_id"`
	Balance decimal.Decimal `json:"balance"`
}

// Market is a binary-outcome question with two quoted prices.
// The quotes are intended to sum to roughly 1.0; each is clamped to
// [0.01, 0.99] by the pricing engine, so the sum can drift at the
// boundaries.
type Market struct {
	ID        int64           `json:"id"`
	Question  string          `json:"question"`
	IsOpen    bool            `json:"is_open"`
	YesPrice  decimal.Decimal `json:"yes_price"`
	NoPrice   decimal.Decimal `json:"no_price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Quote returns the current price for one side of the market.
// The side must already be normalized.
func (m *Market) Quote(side string) decimal.Decimal {
	if side == SideYes {
		return m.YesPrice
	}
	return m.NoPrice
}

// Bet is an immutable record of a filled bet. Once created, these are
// never modified or deleted (append-only fill log).
type Bet struct {
	ID       int64           `json:"id"`
	WaID     string          `json:"wa_id"`
	MarketID int64           `json:"market_id"`
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"` // quote at fill time
	Qty      int64           `json:"qty"`
	Ts       int64           `json:"ts"` // fill time, seconds since epoch
}
