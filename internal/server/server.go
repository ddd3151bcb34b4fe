// Package server wires the HTTP/WebSocket transport: the gateway webhook,
// agent login, the per-dialog chat session endpoint, and the event feed.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oneweb/helpdesk-chat/internal/config"
	"github.com/oneweb/helpdesk-chat/internal/events"
	"github.com/oneweb/helpdesk-chat/internal/gateways"
	"github.com/oneweb/helpdesk-chat/internal/queues"
	"github.com/oneweb/helpdesk-chat/internal/security"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

// Server handles all inbound HTTP and WebSocket traffic.
type Server struct {
	cfg      *config.Config
	stores   *storage.Stores
	queues   *queues.Registry
	feed     *events.Feed
	gateways *gateways.Registry
	inbound  *gateways.Inbound
	sessions *security.SessionStore

	upgrader   websocket.Upgrader
	mux        *http.ServeMux
	httpServer *http.Server
}

// New builds the server over its collaborators; nothing global.
func New(cfg *config.Config, stores *storage.Stores, queueReg *queues.Registry, feed *events.Feed, gatewayReg *gateways.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		stores:   stores,
		queues:   queueReg,
		feed:     feed,
		gateways: gatewayReg,
		inbound:  gateways.NewInbound(stores.Dialogs, stores.Messages),
		sessions: security.NewSessionStore(time.Duration(cfg.Security.SessionTTLMinutes) * time.Minute),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin validates WebSocket origins against the allowed list. No
// configured origins means all are allowed (dev mode); an empty Origin
// header (non-browser client) is always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("websocket origin rejected", "origin", origin)
	return false
}

// buildMux registers all routes.
func (s *Server) buildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/gateways/{alias}", s.handleGatewayHook)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("/chat/{dialog_id}", s.handleChat)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)

	s.mux = mux
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := s.buildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("helpdesk server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("helpdesk server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// StartTestServer binds the server to a random local port and returns the
// base address plus a start function. Used by integration tests.
func StartTestServer(s *Server, ctx context.Context) (addr string, start func()) {
	mux := s.buildMux()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("listen: " + err.Error())
	}

	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpServer.Shutdown(shutdownCtx)
		}()
		go s.httpServer.Serve(ln)
	}

	return addr, start
}
