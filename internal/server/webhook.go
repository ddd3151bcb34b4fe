package server

import (
	"log/slog"
	"net/http"

	"github.com/oneweb/helpdesk-chat/internal/events"
)

// handleGatewayHook is the webhook entry point for external messaging
// services. Any HTTP method is accepted; the alias in the path selects the
// gateway. The message is linked and persisted by the gateway path, then
// enqueued for the dialog's live session; dialogs with no assigned agent
// additionally raise a feed event. The 200 acknowledgment does not wait
// for an agent to consume the message.
func (s *Server) handleGatewayHook(w http.ResponseWriter, r *http.Request) {
	alias := r.PathValue("alias")

	gw, err := s.gateways.Get(alias)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	msg, err := s.inbound.Handle(r.Context(), gw, r)
	if err != nil {
		slog.Error("inbound message rejected", "alias", alias, "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.queues.Put(msg.DialogID, msg)

	if !msg.Dialog.Assigned() {
		s.feed.Publish(events.Event{
			Type:     events.NewUnassignedDialogMessage,
			DialogID: msg.DialogID,
		})
	}

	slog.Info("inbound message queued",
		"alias", alias,
		"dialog_id", msg.DialogID,
		"assigned", msg.Dialog.Assigned(),
	)
	w.WriteHeader(http.StatusOK)
}
