// Package chat binds one live agent websocket to one dialog: it drains the
// dialog's delivery queue to the agent and relays agent replies back out
// through the originating channel's gateway.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/oneweb/helpdesk-chat/internal/domain"
	"github.com/oneweb/helpdesk-chat/internal/gateways"
	"github.com/oneweb/helpdesk-chat/internal/queues"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

// TimeFormat is the textual timestamp format in frames sent to agents.
const TimeFormat = "2006-01-02 15:04:05"

// OutboundFrame is one customer message pushed to the agent's browser.
type OutboundFrame struct {
	Text     string        `json:"text"`
	Customer FrameCustomer `json:"customer"`
	Datetime string        `json:"datetime"`
	Channel  string        `json:"channel"`
}

// FrameCustomer identifies the customer inside an outbound frame.
type FrameCustomer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InboundFrame is one agent reply read from the browser.
type InboundFrame struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// EncodeMessage converts a linked message into the agent wire frame.
func EncodeMessage(msg *domain.Message) OutboundFrame {
	return OutboundFrame{
		Text: msg.Text,
		Customer: FrameCustomer{
			ID:   msg.Dialog.Customer.ID.String(),
			Name: msg.Dialog.Customer.Name,
		},
		Datetime: msg.CreatedAt.Format(TimeFormat),
		Channel:  string(msg.Channel),
	}
}

// Handler runs one agent chat session. It is bound to a single
// (dialog, user, connection) triple for its whole lifetime.
type Handler struct {
	conn     *websocket.Conn
	dialog   *domain.Dialog
	user     *domain.User
	queues   *queues.Registry
	gateways *gateways.Registry
	messages storage.MessageRepository
}

// NewHandler binds a session. The dialog must carry its customer.
func NewHandler(
	conn *websocket.Conn,
	dialog *domain.Dialog,
	user *domain.User,
	queueReg *queues.Registry,
	gatewayReg *gateways.Registry,
	messages storage.MessageRepository,
) *Handler {
	return &Handler{
		conn:     conn,
		dialog:   dialog,
		user:     user,
		queues:   queueReg,
		gateways: gatewayReg,
		messages: messages,
	}
}

// Run drives both relay loops until the connection closes or ctx is
// cancelled. Whichever loop stops first cancels the other; the blocked
// websocket read is retired by closing the connection. On exit the
// dialog's queue entry is evicted if it has drained.
func (h *Handler) Run(ctx context.Context) error {
	// Both loops share one cancellation: when either returns (clean close
	// included), the other must stop too. errgroup alone only cancels on
	// error, so each loop cancels explicitly on the way out.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// Force the reader out of its blocking Read when the session winds down.
	g.Go(func() error {
		<-gctx.Done()
		h.conn.Close()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return h.relayToAgent(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return h.relayFromAgent(gctx)
	})

	err := g.Wait()

	if h.queues.Evict(h.dialog.ID) {
		slog.Debug("dialog queue evicted", "dialog_id", h.dialog.ID)
	}
	return err
}

// relayToAgent drains the dialog's queue and pushes each message to the
// agent. An empty queue suspends the loop; it never terminates for lack of
// messages, only on connection close or cancellation.
func (h *Handler) relayToAgent(ctx context.Context) error {
	for {
		msg, err := h.queues.Get(ctx, h.dialog.ID)
		if err != nil {
			return nil // cancelled: session is over
		}
		if msg.Dialog == nil {
			msg.Dialog = h.dialog
		}

		h.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := h.conn.WriteJSON(EncodeMessage(msg)); err != nil {
			return fmt.Errorf("write to agent: %w", err)
		}
	}
}

// relayFromAgent reads agent frames, persists each reply once, and sends
// it out through the gateway registered for the frame's channel tag.
// Close frames end the loop cleanly; a malformed frame ends the session
// with an error rather than being swallowed.
func (h *Handler) relayFromAgent(ctx context.Context) error {
	for {
		kind, data, err := h.conn.ReadMessage()
		if err != nil {
			if _, closed := err.(*websocket.CloseError); closed {
				return nil // the agent hung up; expected, not an error
			}
			if ctx.Err() != nil {
				return nil // conn closed by our own shutdown
			}
			return fmt.Errorf("read from agent: %w", err)
		}
		if kind != websocket.TextMessage {
			continue // ping/pong/binary: not ours
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("decode agent frame: %w", err)
		}

		userID := h.user.ID
		msg := &domain.Message{
			ID:       domain.NewID(),
			DialogID: h.dialog.ID,
			Dialog:   h.dialog,
			Channel:  domain.Channel(frame.Channel),
			Text:     frame.Text,
			UserID:   &userID,
		}
		if err := h.messages.Save(ctx, msg); err != nil {
			return fmt.Errorf("save agent message: %w", err)
		}

		gw, err := h.gateways.Get(frame.Channel)
		if err != nil {
			return fmt.Errorf("resolve gateway: %w", err)
		}
		if err := gw.SendMessage(ctx, msg); err != nil {
			slog.Error("outbound send failed", "dialog_id", h.dialog.ID, "channel", frame.Channel, "error", err)
			continue // stored but undelivered; keep the session alive
		}

		slog.Debug("agent reply relayed", "dialog_id", h.dialog.ID, "channel", frame.Channel)
	}
}
