package bet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrMarketNotFound is returned when the market id does not exist.
	ErrMarketNotFound = errors.New("bet: market not found")

	// ErrMarketClosed is returned when the market no longer accepts bets.
	ErrMarketClosed = errors.New("bet: market is closed")

	// ErrInvalidSide is returned when the side is neither YES nor NO.
	ErrInvalidSide = errors.New("bet: side must be YES or NO")

	// ErrInvalidQuantity is returned when qty is not positive.
	ErrInvalidQuantity = errors.New("bet: quantity must be positive")
)

// InsufficientBalanceError reports a bet whose cost exceeds the user's
// balance. It carries both amounts for the user-facing reply.
type InsufficientBalanceError struct {
	Need decimal.Decimal
	Have decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("bet: insufficient balance: need %s, have %s",
		e.Need.StringFixed(2), e.Have.StringFixed(2))
}
