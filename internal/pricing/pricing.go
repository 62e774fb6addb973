// Package pricing implements the one-sided linear price-impact market
// maker used to quote binary markets.
//
// After every fill the chosen side's quote moves up by an impact
// proportional to the filled quantity, capped at a maximum step, and the
// opposite quote is re-derived as 1 minus the updated side. Both quotes
// are clamped to [MinPrice, MaxPrice], so the pair is not guaranteed to
// sum to exactly 1.0 at the boundaries. This is deliberately not a
// constraint-satisfying AMM.
//
// All monetary values use shopspring/decimal — never float64 for money.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/wagerline/chatbet/internal/model"
)

var (
	// ErrInvalidQuantity is returned when qty is not positive.
	ErrInvalidQuantity = errors.New("pricing: quantity must be positive")

	// MinPrice is the lowest allowed quote (probability floor).
	MinPrice = decimal.NewFromFloat(0.01)

	// MaxPrice is the highest allowed quote (probability ceiling).
	MaxPrice = decimal.NewFromFloat(0.99)

	// ImpactPerUnit is the quote movement per unit of filled quantity.
	ImpactPerUnit = decimal.NewFromFloat(0.001)

	// MaxImpact caps the quote movement of a single fill.
	MaxImpact = decimal.NewFromFloat(0.10)
)

// Engine computes fill costs and post-fill quotes. It is stateless —
// market quotes are passed in and mutated as the designed side effect
// of Apply.
type Engine struct {
	perUnit decimal.Decimal
	maxStep decimal.Decimal
	floor   decimal.Decimal
	ceiling decimal.Decimal
}

// NewEngine creates an engine with the default impact parameters.
func NewEngine() *Engine {
	return &Engine{
		perUnit: ImpactPerUnit,
		maxStep: MaxImpact,
		floor:   MinPrice,
		ceiling: MaxPrice,
	}
}

// Impact returns the quote movement caused by filling qty units:
// min(MaxImpact, ImpactPerUnit * qty).
func (e *Engine) Impact(qty int64) decimal.Decimal {
	impact := e.perUnit.Mul(decimal.NewFromInt(qty))
	if impact.GreaterThan(e.maxStep) {
		return e.maxStep
	}
	return impact
}

// Cost returns the total cost of buying qty units at the market's
// current quote for side. The quote at the moment of the request is the
// fill price — no slippage is modeled within a single fill.
func (e *Engine) Cost(m *model.Market, side string, qty int64) decimal.Decimal {
	return m.Quote(side).Mul(decimal.NewFromInt(qty))
}

// Apply mutates the market's quotes after a fill of qty units on side.
// The chosen side moves up by Impact(qty) clamped to the ceiling; the
// opposite side becomes 1 minus the updated quote, clamped to the floor.
// The side must already be normalized and qty positive.
func (e *Engine) Apply(m *model.Market, side string, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	impact := e.Impact(qty)
	one := decimal.NewFromInt(1)

	if side == model.SideYes {
		m.YesPrice = decimal.Min(e.ceiling, m.YesPrice.Add(impact))
		m.NoPrice = decimal.Max(e.floor, one.Sub(m.YesPrice))
	} else {
		m.NoPrice = decimal.Min(e.ceiling, m.NoPrice.Add(impact))
		m.YesPrice = decimal.Max(e.floor, one.Sub(m.NoPrice))
	}
	return nil
}
