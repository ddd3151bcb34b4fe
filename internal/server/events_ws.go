package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// handleEvents streams the unassigned-dialog feed to an authenticated
// front-end over a websocket. Each connection gets its own subscription,
// so several dashboards can watch the feed at once.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("events upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.feed.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only carry control frames; run them down in the background so
	// a client hang-up wakes the parked Next below.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			return // cancelled: client went away or server is stopping
		}

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			slog.Debug("event feed client dropped", "error", err)
			return
		}
	}
}
