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

// WhatsApp talks to a WhatsApp bridge (e.g. whatsapp-web.js based). The
// bridge handles the actual WhatsApp protocol; inbound messages arrive as
// JSON webhooks and outbound messages are POSTed back to the bridge.
type WhatsApp struct {
	cfg    config.WhatsAppConfig
	client *http.Client
}

// NewWhatsApp builds the gateway from config.
func NewWhatsApp(cfg config.WhatsAppConfig) (*WhatsApp, error) {
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("whatsapp bridge_url is required")
	}
	return &WhatsApp{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *WhatsApp) Channel() domain.Channel { return domain.ChannelWhatsApp }

// ParseMessage decodes the bridge webhook body:
// {"from":"+15550001","text":"...","from_name":"..."}
func (g *WhatsApp) ParseMessage(r *http.Request) (RawMessage, error) {
	var payload struct {
		From     string `json:"from"`
		Text     string `json:"text"`
		FromName string `json:"from_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return RawMessage{}, fmt.Errorf("decode whatsapp webhook: %w", err)
	}
	if payload.From == "" {
		return RawMessage{}, fmt.Errorf("whatsapp webhook missing sender")
	}
	return RawMessage{
		PhoneNumber: payload.From,
		Text:        payload.Text,
		Name:        payload.FromName,
	}, nil
}

// SendMessage POSTs the reply to the bridge send endpoint.
func (g *WhatsApp) SendMessage(ctx context.Context, msg *domain.Message) error {
	body, err := json.Marshal(map[string]string{
		"to":   msg.Dialog.Customer.PhoneNumber,
		"text": msg.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BridgeURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp bridge returned %s", resp.Status)
	}

	slog.Debug("whatsapp message sent", "dialog_id", msg.DialogID)
	return nil
}
