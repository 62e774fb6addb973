// Package whatsapp sends outbound messages through the Meta Graph API
// (WhatsApp Cloud). Payloads follow the /{phone-number-id}/messages
// send endpoint: plain text bodies and interactive reply buttons.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the Graph API root for the send endpoint.
const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// sendTimeout bounds one outbound send. On timeout the enclosing event
// is treated as handled (soft failure), never retried.
const sendTimeout = 20 * time.Second

// ErrMissingCredentials is returned when the access token or phone
// number id is not configured. Fatal to any send attempt.
var ErrMissingCredentials = errors.New("whatsapp: missing access token or phone number id")

// Button is one interactive reply button (maximum three per message on
// the Cloud API; this bot uses two).
type Button struct {
	ID    string
	Title string
}

// Client sends messages via the Graph API. Safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	token         string
	phoneNumberID string
	baseURL       string
}

// NewClient creates a client for the given credentials. Credentials may
// be empty; sends then fail with ErrMissingCredentials.
func NewClient(token, phoneNumberID string) *Client {
	return NewClientWithBaseURL(token, phoneNumberID, DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a non-default API root.
// Used in tests to point at a local server.
func NewClientWithBaseURL(token, phoneNumberID, baseURL string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: sendTimeout},
		token:         token,
		phoneNumberID: phoneNumberID,
		baseURL:       baseURL,
	}
}

// --- Wire payloads ---

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type interactivePayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Interactive      interactiveBody `json:"interactive"`
}

type interactiveBody struct {
	Type   string            `json:"type"`
	Body   textBody          `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveAction struct {
	Buttons []replyButton `json:"buttons"`
}

type replyButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SendText delivers a plain text message to one recipient.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
}

// SendButtons delivers an interactive message with reply buttons whose
// ids come back verbatim in the next webhook delivery.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	action := interactiveAction{}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, replyButton{
			Type:  "reply",
			Reply: buttonReply{ID: b.ID, Title: b.Title},
		})
	}

	return c.send(ctx, interactivePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: interactiveBody{
			Type:   "button",
			Body:   textBody{Body: body},
			Action: action,
		},
	})
}

func (c *Client) send(ctx context.Context, payload any) error {
	if c.token == "" || c.phoneNumberID == "" {
		return ErrMissingCredentials
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp: send failed %d: %s", resp.StatusCode, body)
	}
	return nil
}
