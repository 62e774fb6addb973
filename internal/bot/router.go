package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wagerline/chatbet/internal/bet"
	"github.com/wagerline/chatbet/internal/model"
	"github.com/wagerline/chatbet/internal/store"
)

// Button is one reply button in an interactive prompt.
type Button struct {
	ID    string
	Title string
}

// Reply is the single outbound response produced for one inbound
// message: plain text, or a body with reply buttons.
type Reply struct {
	Text    string
	Buttons []Button
}

// Router maps intents to actions on the betting engine or reads of the
// ledger, and formats the response. It performs no transport I/O — the
// webhook layer delivers the returned Reply.
type Router struct {
	store store.Store
	bets  *bet.Service
}

// NewRouter creates a router over the given store and betting service.
func NewRouter(st store.Store, bets *bet.Service) *Router {
	return &Router{store: st, bets: bets}
}

// Dispatch executes one intent for a sender and returns the reply.
// Domain failures in bet placement are turned into user-visible text;
// only infrastructure errors propagate.
func (r *Router) Dispatch(ctx context.Context, from string, intent Intent) (Reply, error) {
	switch intent.Kind {
	case IntentGreeting:
		return Reply{Text: "Welcome! Type 'markets' to see questions, or 'balance'."}, nil

	case IntentListMarkets:
		markets, err := r.store.ListMarkets(ctx)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: marketsText(markets)}, nil

	case IntentBalance:
		user, err := r.store.GetOrCreateUser(ctx, from)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("Your balance: %s", user.Balance.StringFixed(2))}, nil

	case IntentMyBets:
		bets, err := r.store.GetBetsByUser(ctx, from)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: betsText(bets)}, nil

	case IntentSelectMarket:
		market, err := r.store.GetMarket(ctx, intent.MarketID)
		if errors.Is(err, store.ErrNotFound) {
			return Reply{Text: "Market not found. Type 'markets'."}, nil
		}
		if err != nil {
			return Reply{}, err
		}
		if !market.IsOpen {
			return Reply{Text: "Market is closed."}, nil
		}
		return marketPrompt(market), nil

	case IntentPlaceBet:
		return r.placeBet(ctx, from, intent)

	default:
		return Reply{Text: "Send: markets | balance | <market_id> (example: 1)"}, nil
	}
}

// placeBet executes a button-tap bet with the default quantity and maps
// every domain error to an explanatory message.
func (r *Router) placeBet(ctx context.Context, from string, intent Intent) (Reply, error) {
	fill, err := r.bets.PlaceBet(ctx, from, intent.MarketID, intent.Side, bet.DefaultQty)

	var insufficient *bet.InsufficientBalanceError
	switch {
	case err == nil:
		return Reply{Text: fillText(fill)}, nil
	case errors.Is(err, bet.ErrMarketNotFound):
		return Reply{Text: "Market not found. Send 'markets'."}, nil
	case errors.Is(err, bet.ErrMarketClosed):
		return Reply{Text: "Market is closed."}, nil
	case errors.Is(err, bet.ErrInvalidSide):
		return Reply{Text: "Invalid side."}, nil
	case errors.As(err, &insufficient):
		return Reply{Text: fmt.Sprintf("Insufficient balance. Need %s, you have %s",
			insufficient.Need.StringFixed(2), insufficient.Have.StringFixed(2))}, nil
	default:
		return Reply{}, err
	}
}

// marketsText formats the market listing with the trailing command hint.
func marketsText(markets []model.Market) string {
	lines := []string{"Available markets (send the market number):"}
	for _, m := range markets {
		status := "OPEN"
		if !m.IsOpen {
			status = "CLOSED"
		}
		lines = append(lines, fmt.Sprintf("%d) %s  [YES %s / NO %s] (%s)",
			m.ID, m.Question, m.YesPrice.StringFixed(2), m.NoPrice.StringFixed(2), status))
	}
	lines = append(lines, "\nCommands: markets | balance | <market_id>")
	return strings.Join(lines, "\n")
}

// betsText formats a user's fill history.
func betsText(bets []model.Bet) string {
	if len(bets) == 0 {
		return "No bets yet. Type 'markets' to get started."
	}
	lines := []string{"Your bets:"}
	for _, b := range bets {
		lines = append(lines, fmt.Sprintf("Market %d: %s @ %s × %d",
			b.MarketID, b.Side, b.Price.StringFixed(2), b.Qty))
	}
	return strings.Join(lines, "\n")
}

// marketPrompt builds the two-button YES/NO prompt for an open market.
// The button payloads carry the market and side for the next round-trip.
func marketPrompt(m *model.Market) Reply {
	body := fmt.Sprintf("%s\n\nYES: %s | NO: %s\n\nChoose:",
		m.Question, m.YesPrice.StringFixed(2), m.NoPrice.StringFixed(2))
	return Reply{
		Text: body,
		Buttons: []Button{
			{ID: ButtonID(m.ID, model.SideYes), Title: fmt.Sprintf("YES (%s)", m.YesPrice.StringFixed(2))},
			{ID: ButtonID(m.ID, model.SideNo), Title: fmt.Sprintf("NO (%s)", m.NoPrice.StringFixed(2))},
		},
	}
}

// fillText is the confirmation message for a filled bet.
func fillText(f *bet.Fill) string {
	return fmt.Sprintf("✅ Bet placed!\nMarket %d: %s\nYou: BUY %s @ %s × %d\nBalance: %s",
		f.Market.ID, f.Market.Question, f.Bet.Side,
		f.Bet.Price.StringFixed(2), f.Bet.Qty, f.User.Balance.StringFixed(2))
}
