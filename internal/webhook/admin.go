package webhook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/wagerline/chatbet/internal/metrics"
	"github.com/wagerline/chatbet/internal/model"
	"github.com/wagerline/chatbet/internal/store"
)

// CreateMarketRequest is the JSON body for POST /admin/markets.
type CreateMarketRequest struct {
	Question string          `json:"question"`
	YesPrice decimal.Decimal `json:"yes_price"` // optional; 0 → 0.50
}

// CreateMarket handles POST /admin/markets.
func (h *Handler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		writeError(w, "question is required", http.StatusBadRequest)
		return
	}

	yes := req.YesPrice
	if yes.IsZero() {
		yes = decimal.NewFromFloat(0.50)
	}
	one := decimal.NewFromInt(1)
	if yes.LessThanOrEqual(decimal.Zero) || yes.GreaterThanOrEqual(one) {
		writeError(w, "yes_price must be in (0, 1)", http.StatusBadRequest)
		return
	}

	market := &model.Market{
		Question:  req.Question,
		IsOpen:    true,
		YesPrice:  yes,
		NoPrice:   one.Sub(yes),
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.CreateMarket(r.Context(), market); err != nil {
		slog.Error("create market failed", "err", err)
		writeError(w, "failed to create market", http.StatusInternalServerError)
		return
	}

	metrics.OpenMarkets.Inc()
	slog.Info("market created",
		"id", market.ID,
		"question", market.Question,
		"yes_price", market.YesPrice.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(market)
}

// CloseMarket handles POST /admin/markets/{marketID}/close. Closing is
// one-way: the market stops accepting bets.
func (h *Handler) CloseMarket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "marketID"), 10, 64)
	if err != nil {
		writeError(w, "invalid market id", http.StatusBadRequest)
		return
	}

	if err := h.store.CloseMarket(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "market not found", http.StatusNotFound)
			return
		}
		slog.Error("close market failed", "market", id, "err", err)
		writeError(w, "failed to close market", http.StatusInternalServerError)
		return
	}

	metrics.OpenMarkets.Dec()
	slog.Info("market closed", "market", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "market_id": id})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
