// Package webhook provides the HTTP surface of the bot: Meta webhook
// verification, inbound event processing, health, and the admin market
// endpoints.
//
// The event endpoint always answers HTTP 200. Domain failures become
// chat replies, infrastructure failures become a soft {"ok":false}
// acknowledgment — never an error status that would trigger a platform
// retry storm.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/wagerline/chatbet/internal/bot"
	"github.com/wagerline/chatbet/internal/metrics"
	"github.com/wagerline/chatbet/internal/store"
	"github.com/wagerline/chatbet/internal/whatsapp"
)

// Sender delivers outbound messages. Satisfied by *whatsapp.Client;
// tests substitute a fake.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error
}

// Handler holds the dependencies for the HTTP surface.
type Handler struct {
	verifyToken string
	store       store.Store
	router      *bot.Router
	sender      Sender
	dedup       Deduper
}

// NewHandler creates the webhook handler.
func NewHandler(verifyToken string, st store.Store, router *bot.Router, sender Sender, dedup Deduper) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		store:       st,
		router:      router,
		sender:      sender,
		dedup:       dedup,
	}
}

// --- Inbound payload (Graph webhook shape) ---

type eventPayload struct {
	Entry []eventEntry `json:"entry"`
}

type eventEntry struct {
	Changes []eventChange `json:"changes"`
}

type eventChange struct {
	Value eventValue `json:"value"`
}

type eventValue struct {
	Messages []eventMessage `json:"messages"`
}

type eventMessage struct {
	ID          string            `json:"id"`
	From        string            `json:"from"`
	Type        string            `json:"type"`
	Text        *messageText      `json:"text"`
	Interactive *interactiveReply `json:"interactive"`
}

type messageText struct {
	Body string `json:"body"`
}

type interactiveReply struct {
	Type        string       `json:"type"`
	ButtonReply *buttonReply `json:"button_reply"`
}

type buttonReply struct {
	ID string `json:"id"`
}

// Verify handles GET /webhook, Meta's subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken && challenge != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(challenge))
		return
	}

	slog.Warn("webhook verification failed", "mode", mode)
	http.Error(w, "webhook verification failed", http.StatusForbidden)
}

// Health handles GET /.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true,"service":"chatbet"}`))
}

// Events handles POST /webhook: one inbound delivery → at most one
// outbound reply, acknowledged with HTTP 200 no matter what happened.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	// A panic anywhere below must still acknowledge the delivery.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in event processing", "panic", rec)
			ack(w, false, "internal error")
		}
	}()

	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("malformed webhook body", "err", err)
		ack(w, false, "malformed payload")
		return
	}

	msg, ok := firstMessage(payload)
	if !ok {
		// Delivery-status callbacks and other non-message events.
		ack(w, true, "")
		return
	}
	if msg.From == "" {
		ack(w, true, "")
		return
	}

	ctx := r.Context()

	eventID := msg.ID
	if eventID == "" {
		// No platform message id: synthesize one so the dedup path is
		// uniform (it will never match an earlier delivery).
		eventID = uuid.NewString()
	}
	if seen, err := h.dedup.Seen(ctx, eventID); err != nil {
		slog.Warn("dedup check failed, processing anyway", "err", err)
	} else if seen {
		metrics.DuplicateEvents.Inc()
		slog.Info("duplicate delivery skipped", "event_id", eventID)
		ack(w, true, "")
		return
	}

	metrics.EventsTotal.WithLabelValues(eventTypeLabel(msg.Type)).Inc()

	// First contact creates the user with the starting balance.
	if _, err := h.store.GetOrCreateUser(ctx, msg.From); err != nil {
		slog.Error("get or create user failed", "user", msg.From, "err", err)
		ack(w, false, "storage error")
		return
	}

	reply, err := h.router.Dispatch(ctx, msg.From, parseIntent(msg))
	if err != nil {
		slog.Error("dispatch failed", "user", msg.From, "err", err)
		ack(w, false, "dispatch error")
		return
	}

	if err := h.deliver(ctx, msg.From, reply); err != nil {
		metrics.SendFailures.Inc()
		slog.Error("send failed", "user", msg.From, "err", err)
		ack(w, false, "send error")
		return
	}

	ack(w, true, "")
}

// eventTypeLabel bounds the metric label to the message types the bot
// handles. The type field arrives from the wire, so anything else would
// mint an unbounded set of label values.
func eventTypeLabel(msgType string) string {
	switch msgType {
	case "text", "interactive":
		return msgType
	}
	return "other"
}

// parseIntent maps one inbound message to an intent. Anything that is
// not a recognized text command or a well-formed button tap falls back
// to Unrecognized, which dispatches the help message.
func parseIntent(msg *eventMessage) bot.Intent {
	if msg.Type == "interactive" && msg.Interactive != nil &&
		msg.Interactive.Type == "button_reply" && msg.Interactive.ButtonReply != nil {
		intent, err := bot.ParseButton(msg.Interactive.ButtonReply.ID)
		if err != nil {
			slog.Warn("invalid button payload", "id", msg.Interactive.ButtonReply.ID)
			return bot.Intent{Kind: bot.IntentUnrecognized}
		}
		return intent
	}

	if msg.Type == "text" && msg.Text != nil {
		return bot.ParseText(msg.Text.Body)
	}

	return bot.Intent{Kind: bot.IntentUnrecognized}
}

// firstMessage digs the first message out of the nested delivery shape.
func firstMessage(p eventPayload) (*eventMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil, false
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return nil, false
	}
	return &msgs[0], true
}

// deliver sends the reply as buttons or text.
func (h *Handler) deliver(ctx context.Context, to string, reply bot.Reply) error {
	if len(reply.Buttons) > 0 {
		buttons := make([]whatsapp.Button, 0, len(reply.Buttons))
		for _, b := range reply.Buttons {
			buttons = append(buttons, whatsapp.Button{ID: b.ID, Title: b.Title})
		}
		return h.sender.SendButtons(ctx, to, reply.Text, buttons)
	}
	return h.sender.SendText(ctx, to, reply.Text)
}

// ack writes the always-200 acknowledgment body.
func ack(w http.ResponseWriter, ok bool, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"ok": ok}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	json.NewEncoder(w).Encode(resp)
}
