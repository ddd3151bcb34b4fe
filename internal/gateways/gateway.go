// Package gateways is the integration boundary to external messaging
// services. A Gateway translates one service's wire format to and from the
// internal message shape; the Registry resolves gateways by the alias used
// in webhook URLs; Inbound runs the shared algorithm that links a parsed
// message to its dialog, creating customer and dialog on first contact.
package gateways

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/oneweb/helpdesk-chat/internal/domain"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

// ErrUnknownGateway is returned when no gateway is registered for an alias.
var ErrUnknownGateway = errors.New("gateways: unknown gateway alias")

// RawMessage is the channel-neutral result of parsing an inbound webhook
// request, before it is linked to a dialog.
type RawMessage struct {
	PhoneNumber string
	Text        string
	Name        string
}

// Gateway is one external messaging service integration.
type Gateway interface {
	// Channel returns the channel tag this gateway serves.
	Channel() domain.Channel

	// ParseMessage extracts a channel-neutral message from a raw webhook
	// request.
	ParseMessage(r *http.Request) (RawMessage, error)

	// SendMessage delivers an agent-authored message back out through the
	// external service. The message has its Dialog attached.
	SendMessage(ctx context.Context, msg *domain.Message) error
}

// Registry maps webhook aliases to gateways. The same gateway may be
// registered under several aliases.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry returns an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register binds a gateway to an alias. Aliases appear in URLs and must not
// contain whitespace.
func (r *Registry) Register(alias string, gw Gateway) error {
	if alias == "" || strings.ContainsAny(alias, " \t\n\v\f\r") {
		return fmt.Errorf("gateways: invalid alias %q", alias)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[alias] = gw
	return nil
}

// Unregister removes an alias.
func (r *Registry) Unregister(alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.gateways, alias)
}

// Get returns the gateway registered under alias.
func (r *Registry) Get(alias string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, alias)
	}
	return gw, nil
}

// Inbound links parsed webhook messages to dialogs and persists them.
type Inbound struct {
	dialogs  storage.DialogRepository
	messages storage.MessageRepository
}

// NewInbound builds the inbound handler over the storage collaborators.
func NewInbound(dialogs storage.DialogRepository, messages storage.MessageRepository) *Inbound {
	return &Inbound{dialogs: dialogs, messages: messages}
}

// Handle parses the request with the given gateway, resolves the owning
// dialog by the sender's phone number (creating customer and dialog on
// first contact), persists the message once, and returns it with the
// dialog attached.
func (h *Inbound) Handle(ctx context.Context, gw Gateway, r *http.Request) (*domain.Message, error) {
	raw, err := gw.ParseMessage(r)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	dialog, err := h.dialogs.ResolveByPhone(ctx, raw.PhoneNumber, raw.Name, gw.Channel())
	if err != nil {
		return nil, fmt.Errorf("resolve dialog: %w", err)
	}

	msg := &domain.Message{
		ID:       domain.NewID(),
		DialogID: dialog.ID,
		Dialog:   dialog,
		Channel:  gw.Channel(),
		Text:     raw.Text,
	}
	if err := h.messages.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}
