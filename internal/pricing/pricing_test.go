package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wagerline/chatbet/internal/model"
	"github.com/wagerline/chatbet/internal/pricing"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func market(yes, no float64) *model.Market {
	return &model.Market{
		ID:       1,
		Question: "test",
		IsOpen:   true,
		YesPrice: d(yes),
		NoPrice:  d(no),
	}
}

func TestImpact(t *testing.T) {
	e := pricing.NewEngine()

	cases := []struct {
		qty  int64
		want decimal.Decimal
	}{
		{1, d(0.001)},
		{10, d(0.01)},
		{50, d(0.05)},
		{100, d(0.10)},
		{500, d(0.10)}, // capped
		{100000, d(0.10)},
	}

	for _, c := range cases {
		got := e.Impact(c.qty)
		if !got.Equal(c.want) {
			t.Errorf("Impact(%d) = %s, want %s", c.qty, got, c.want)
		}
	}
}

func TestCost_UsesCurrentQuote(t *testing.T) {
	e := pricing.NewEngine()
	m := market(0.50, 0.50)

	cost := e.Cost(m, model.SideYes, 10)
	if !cost.Equal(d(5.0)) {
		t.Errorf("cost = %s, want 5", cost)
	}

	m.NoPrice = d(0.30)
	cost = e.Cost(m, model.SideNo, 20)
	if !cost.Equal(d(6.0)) {
		t.Errorf("NO cost = %s, want 6", cost)
	}
}

func TestApply_Yes(t *testing.T) {
	e := pricing.NewEngine()
	m := market(0.50, 0.50)

	if err := e.Apply(m, model.SideYes, 10); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !m.YesPrice.Equal(d(0.51)) {
		t.Errorf("yes_price = %s, want 0.51", m.YesPrice)
	}
	if !m.NoPrice.Equal(d(0.49)) {
		t.Errorf("no_price = %s, want 0.49", m.NoPrice)
	}
}

func TestApply_No(t *testing.T) {
	e := pricing.NewEngine()
	m := market(0.45, 0.55)

	if err := e.Apply(m, model.SideNo, 30); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !m.NoPrice.Equal(d(0.58)) {
		t.Errorf("no_price = %s, want 0.58", m.NoPrice)
	}
	if !m.YesPrice.Equal(d(0.42)) {
		t.Errorf("yes_price = %s, want 0.42", m.YesPrice)
	}
}

func TestApply_ClampsAtCeiling(t *testing.T) {
	e := pricing.NewEngine()
	m := market(0.95, 0.05)

	// Impact of 100+ units is capped at 0.10, pushing 0.95 past 0.99.
	if err := e.Apply(m, model.SideYes, 1000); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !m.YesPrice.Equal(d(0.99)) {
		t.Errorf("yes_price = %s, want clamp at 0.99", m.YesPrice)
	}
	if !m.NoPrice.Equal(d(0.01)) {
		t.Errorf("no_price = %s, want 0.01", m.NoPrice)
	}
}

func TestApply_OppositeSideFloor(t *testing.T) {
	e := pricing.NewEngine()
	m := market(0.01, 0.99)

	if err := e.Apply(m, model.SideNo, 50); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// NO was already at the ceiling; YES stays at the floor.
	if !m.NoPrice.Equal(d(0.99)) {
		t.Errorf("no_price = %s, want 0.99", m.NoPrice)
	}
	if !m.YesPrice.Equal(d(0.01)) {
		t.Errorf("yes_price = %s, want 0.01", m.YesPrice)
	}
}

func TestApply_RejectsNonPositiveQty(t *testing.T) {
	e := pricing.NewEngine()
	m := market(0.50, 0.50)

	for _, qty := range []int64{0, -5} {
		if err := e.Apply(m, model.SideYes, qty); err == nil {
			t.Errorf("Apply(qty=%d) should fail", qty)
		}
	}
	if !m.YesPrice.Equal(d(0.50)) {
		t.Errorf("quotes must be untouched on error, yes_price = %s", m.YesPrice)
	}
}
