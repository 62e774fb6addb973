package bot_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wagerline/chatbet/internal/bet"
	"github.com/wagerline/chatbet/internal/bot"
	"github.com/wagerline/chatbet/internal/model"
	"github.com/wagerline/chatbet/internal/pricing"
	"github.com/wagerline/chatbet/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newTestRouter(t *testing.T) (*bot.Router, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	svc := bet.NewService(ms, pricing.NewEngine(), nil)
	return bot.NewRouter(ms, svc), ms
}

func seedMarket(t *testing.T, ms *store.MemoryStore, question string, yes, no float64, open bool) *model.Market {
	t.Helper()
	m := &model.Market{Question: question, IsOpen: open, YesPrice: d(yes), NoPrice: d(no)}
	if err := ms.CreateMarket(context.Background(), m); err != nil {
		t.Fatalf("seed market: %v", err)
	}
	return m
}

// --- Parsing ---

func TestParseText(t *testing.T) {
	cases := []struct {
		in   string
		want bot.IntentKind
	}{
		{"hi", bot.IntentGreeting},
		{"Hello", bot.IntentGreeting},
		{"  START  ", bot.IntentGreeting},
		{"markets", bot.IntentListMarkets},
		{"MARKETS", bot.IntentListMarkets},
		{"balance", bot.IntentBalance},
		{"bets", bot.IntentMyBets},
		{"1", bot.IntentSelectMarket},
		{"42", bot.IntentSelectMarket},
		{"1x", bot.IntentUnrecognized},
		{"-1", bot.IntentUnrecognized},
		{"+1", bot.IntentUnrecognized},
		{"what", bot.IntentUnrecognized},
		{"", bot.IntentUnrecognized},
	}

	for _, c := range cases {
		got := bot.ParseText(c.in)
		if got.Kind != c.want {
			t.Errorf("ParseText(%q).Kind = %v, want %v", c.in, got.Kind, c.want)
		}
	}
}

func TestParseText_MarketID(t *testing.T) {
	intent := bot.ParseText(" 7 ")
	if intent.Kind != bot.IntentSelectMarket || intent.MarketID != 7 {
		t.Errorf("ParseText(\" 7 \") = %+v, want SelectMarket(7)", intent)
	}
}

func TestParseButton(t *testing.T) {
	intent, err := bot.ParseButton("BET|3|YES")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if intent.Kind != bot.IntentPlaceBet || intent.MarketID != 3 || intent.Side != "YES" {
		t.Errorf("got %+v, want PlaceBet(3, YES)", intent)
	}

	for _, id := range []string{"", "BET|x|YES", "BET|3", "SELL|3|YES", "BET|3|YES|extra"} {
		if _, err := bot.ParseButton(id); err == nil {
			t.Errorf("ParseButton(%q) should fail", id)
		}
	}
}

func TestButtonID_RoundTrip(t *testing.T) {
	id := bot.ButtonID(12, model.SideNo)
	intent, err := bot.ParseButton(id)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if intent.MarketID != 12 || intent.Side != "NO" {
		t.Errorf("round trip = %+v", intent)
	}
}

// --- Dispatch ---

func dispatch(t *testing.T, r *bot.Router, from string, intent bot.Intent) bot.Reply {
	t.Helper()
	reply, err := r.Dispatch(context.Background(), from, intent)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	return reply
}

func TestDispatch_Greeting(t *testing.T) {
	r, _ := newTestRouter(t)
	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentGreeting})
	if !strings.Contains(reply.Text, "Welcome") {
		t.Errorf("greeting = %q", reply.Text)
	}
}

func TestDispatch_ListMarkets(t *testing.T) {
	r, ms := newTestRouter(t)
	seedMarket(t, ms, "Will India win the next match?", 0.50, 0.50, true)
	m2 := seedMarket(t, ms, "Will it rain in Mumbai tomorrow?", 0.45, 0.55, true)
	ms.CloseMarket(context.Background(), m2.ID)

	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentListMarkets})

	for _, want := range []string{
		"1) Will India win the next match?  [YES 0.50 / NO 0.50] (OPEN)",
		"2) Will it rain in Mumbai tomorrow?  [YES 0.45 / NO 0.55] (CLOSED)",
	} {
		if !strings.Contains(reply.Text, want) {
			t.Errorf("listing missing %q:\n%s", want, reply.Text)
		}
	}
	if !strings.HasSuffix(reply.Text, "Commands: markets | balance | <market_id>") {
		t.Errorf("listing must end with the command hint:\n%s", reply.Text)
	}
}

func TestDispatch_Balance(t *testing.T) {
	r, _ := newTestRouter(t)
	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentBalance})
	if reply.Text != "Your balance: 1000.00" {
		t.Errorf("balance = %q", reply.Text)
	}
}

func TestDispatch_SelectMarket_Buttons(t *testing.T) {
	r, ms := newTestRouter(t)
	m := seedMarket(t, ms, "Will it rain?", 0.45, 0.55, true)

	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentSelectMarket, MarketID: m.ID})

	if len(reply.Buttons) != 2 {
		t.Fatalf("expected 2 buttons, got %d", len(reply.Buttons))
	}
	if reply.Buttons[0].ID != "BET|1|YES" || reply.Buttons[0].Title != "YES (0.45)" {
		t.Errorf("yes button = %+v", reply.Buttons[0])
	}
	if reply.Buttons[1].ID != "BET|1|NO" || reply.Buttons[1].Title != "NO (0.55)" {
		t.Errorf("no button = %+v", reply.Buttons[1])
	}
	if !strings.Contains(reply.Text, "YES: 0.45 | NO: 0.55") {
		t.Errorf("prompt body = %q", reply.Text)
	}
}

func TestDispatch_SelectMarket_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentSelectMarket, MarketID: 9})
	if reply.Text != "Market not found. Type 'markets'." {
		t.Errorf("reply = %q", reply.Text)
	}
	if len(reply.Buttons) != 0 {
		t.Error("not-found reply must not carry buttons")
	}
}

func TestDispatch_SelectMarket_Closed(t *testing.T) {
	r, ms := newTestRouter(t)
	m := seedMarket(t, ms, "q", 0.50, 0.50, false)

	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentSelectMarket, MarketID: m.ID})
	if reply.Text != "Market is closed." {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestDispatch_PlaceBet_Confirmation(t *testing.T) {
	r, ms := newTestRouter(t)
	m := seedMarket(t, ms, "Will India win the next match?", 0.50, 0.50, true)

	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentPlaceBet, MarketID: m.ID, Side: "YES"})

	want := "✅ Bet placed!\nMarket 1: Will India win the next match?\nYou: BUY YES @ 0.50 × 10\nBalance: 995.00"
	if reply.Text != want {
		t.Errorf("confirmation = %q, want %q", reply.Text, want)
	}
}

func TestDispatch_PlaceBet_DomainErrors(t *testing.T) {
	r, ms := newTestRouter(t)
	open := seedMarket(t, ms, "open", 0.50, 0.50, true)
	closed := seedMarket(t, ms, "closed", 0.50, 0.50, false)

	cases := []struct {
		name   string
		intent bot.Intent
		want   string
	}{
		{"not found", bot.Intent{Kind: bot.IntentPlaceBet, MarketID: 99, Side: "YES"}, "Market not found. Send 'markets'."},
		{"closed", bot.Intent{Kind: bot.IntentPlaceBet, MarketID: closed.ID, Side: "YES"}, "Market is closed."},
		{"invalid side", bot.Intent{Kind: bot.IntentPlaceBet, MarketID: open.ID, Side: "MAYBE"}, "Invalid side."},
	}

	for _, c := range cases {
		reply := dispatch(t, r, "wa-1", c.intent)
		if reply.Text != c.want {
			t.Errorf("%s: reply = %q, want %q", c.name, reply.Text, c.want)
		}
	}
}

func TestDispatch_PlaceBet_InsufficientBalance(t *testing.T) {
	r, ms := newTestRouter(t)
	m := seedMarket(t, ms, "q", 0.50, 0.50, true)

	// Keep betting until a fill costs more than what's left.
	var last bot.Reply
	for i := 0; i < 400; i++ {
		last = dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentPlaceBet, MarketID: m.ID, Side: "YES"})
		if strings.HasPrefix(last.Text, "Insufficient balance.") {
			break
		}
	}
	if !strings.HasPrefix(last.Text, "Insufficient balance. Need ") {
		t.Fatalf("expected insufficient-balance reply, got %q", last.Text)
	}
	if !strings.Contains(last.Text, ", you have ") {
		t.Errorf("reply must report required vs available: %q", last.Text)
	}
}

func TestDispatch_Unrecognized(t *testing.T) {
	r, _ := newTestRouter(t)
	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentUnrecognized})
	if reply.Text != "Send: markets | balance | <market_id> (example: 1)" {
		t.Errorf("help = %q", reply.Text)
	}
}

func TestDispatch_MyBets(t *testing.T) {
	r, ms := newTestRouter(t)
	m := seedMarket(t, ms, "q", 0.50, 0.50, true)

	reply := dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentMyBets})
	if !strings.Contains(reply.Text, "No bets yet") {
		t.Errorf("empty history = %q", reply.Text)
	}

	dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentPlaceBet, MarketID: m.ID, Side: "NO"})
	reply = dispatch(t, r, "wa-1", bot.Intent{Kind: bot.IntentMyBets})
	if !strings.Contains(reply.Text, "Market 1: NO @ 0.50 × 10") {
		t.Errorf("history = %q", reply.Text)
	}
}
