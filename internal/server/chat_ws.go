package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/oneweb/helpdesk-chat/internal/chat"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

// handleChat upgrades an authenticated agent connection into a live chat
// session bound to one dialog.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	dialogID, err := uuid.Parse(r.PathValue("dialog_id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	dialog, err := s.stores.Dialogs.GetByID(r.Context(), dialogID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
		} else {
			slog.Error("dialog lookup failed", "dialog_id", dialogID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("chat upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("chat session opened", "dialog_id", dialog.ID, "user_id", user.ID)

	handler := chat.NewHandler(conn, dialog, user, s.queues, s.gateways, s.stores.Messages)
	if err := handler.Run(r.Context()); err != nil {
		slog.Error("chat session ended with error", "dialog_id", dialog.ID, "error", err)
		return
	}
	slog.Info("chat session closed", "dialog_id", dialog.ID, "user_id", user.ID)
}
