package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oneweb/helpdesk-chat/internal/config"
	"github.com/oneweb/helpdesk-chat/internal/domain"
)

// Viber integrates with the Viber REST API. Inbound message callbacks carry
// the sender id and text; outbound replies go to the send_message endpoint
// authenticated with the account token.
type Viber struct {
	cfg    config.ViberConfig
	client *http.Client
}

// NewViber builds the gateway from config.
func NewViber(cfg config.ViberConfig) (*Viber, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("viber token is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://chatapi.viber.com/pa"
	}
	return &Viber{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *Viber) Channel() domain.Channel { return domain.ChannelViber }

// ParseMessage decodes a Viber message callback. Only "message" events
// carry a payload this core cares about.
func (g *Viber) ParseMessage(r *http.Request) (RawMessage, error) {
	var payload struct {
		Event  string `json:"event"`
		Sender struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"sender"`
		Message struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return RawMessage{}, fmt.Errorf("decode viber callback: %w", err)
	}
	if payload.Event != "" && payload.Event != "message" {
		return RawMessage{}, fmt.Errorf("viber event %q is not a message", payload.Event)
	}
	if payload.Sender.ID == "" {
		return RawMessage{}, fmt.Errorf("viber callback missing sender")
	}
	return RawMessage{
		PhoneNumber: payload.Sender.ID,
		Text:        payload.Message.Text,
		Name:        payload.Sender.Name,
	}, nil
}

// SendMessage posts the reply to the Viber send_message endpoint.
func (g *Viber) SendMessage(ctx context.Context, msg *domain.Message) error {
	body, err := json.Marshal(map[string]any{
		"receiver": msg.Dialog.Customer.PhoneNumber,
		"type":     "text",
		"text":     msg.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal viber message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL+"/send_message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build viber request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Viber-Auth-Token", g.cfg.Token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send viber message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("viber api returned %s", resp.Status)
	}

	slog.Debug("viber message sent", "dialog_id", msg.DialogID)
	return nil
}
