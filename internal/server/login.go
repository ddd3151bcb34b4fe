package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/oneweb/helpdesk-chat/internal/domain"
	"github.com/oneweb/helpdesk-chat/internal/security"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

const sessionCookie = "session_id"

// handleLogin checks form credentials and issues a session cookie. Unknown
// logins and wrong passwords both come back as a bare 401 so callers can't
// probe which logins exist.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	login := r.PostFormValue("login")
	password := r.PostFormValue("password")
	if login == "" || password == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := s.stores.Users.GetByLogin(r.Context(), login)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("login lookup failed", "error", err)
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if !security.ValidatePassword(user.PasswordHash, password) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	token := s.sessions.Create(user.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("agent logged in", "user_id", user.ID)
	w.WriteHeader(http.StatusOK)
}

// authenticate resolves the request's session cookie to a user.
func (s *Server) authenticate(r *http.Request) (*domain.User, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}
	userID, ok := s.sessions.Lookup(c.Value)
	if !ok {
		return nil, http.ErrNoCookie
	}
	return s.stores.Users.GetByID(r.Context(), userID)
}
