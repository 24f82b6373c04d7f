package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrMouse2405/CSE362/internal/audit"
	"github.com/MrMouse2405/CSE362/internal/auth"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/config"
	"github.com/MrMouse2405/CSE362/internal/metrics"
)

// defaultCookieName is used when the session config leaves it empty.
const defaultCookieName = "session_token"

// cookieSettings describes the session cookie.
type cookieSettings struct {
	name   string
	secure bool
	maxAge int // seconds
}

func newCookieSettings(cfg config.SessionConfig, ttl time.Duration) cookieSettings {
	name := cfg.CookieName
	if name == "" {
		name = defaultCookieName
	}
	return cookieSettings{name: name, secure: cfg.CookieSecure, maxAge: int(ttl.Seconds())}
}

// set writes the session cookie holding token.
func (c cookieSettings) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   c.maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clear expires the session cookie in the browser.
func (c cookieSettings) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// userResponse is the public view of an account.
type userResponse struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Role: u.Role}
}

// messageResponse is the body of every user endpoint.
type messageResponse struct {
	Message string        `json:"message"`
	User    *userResponse `json:"user,omitempty"`
}

func withUser(message string, u *auth.User) messageResponse {
	resp := toUserResponse(u)
	return messageResponse{Message: message, User: &resp}
}

// handleLogin verifies form credentials and starts a session.
//
// Unknown users and wrong passwords get the same 401. For an unknown user
// a throwaway hash is still verified so the response time matches.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	ctx := r.Context()
	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		s.hasher.Verify(s.dummyHash, password) //nolint:errcheck // timing equaliser only
		s.loginFailed(r, username, "unknown user")
		writeUnauthorized(w, "invalid credentials")
		return
	case err != nil:
		metrics.RecordLogin(metrics.OutcomeError)
		s.writeAuthError(w, r, err)
		return
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	if !ok {
		s.loginFailed(r, username, "wrong password")
		writeUnauthorized(w, "invalid credentials")
		return
	}

	created, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		s.writeAuthError(w, r, err)
		return
	}
	s.cookie.set(w, created.Token)

	metrics.RecordLogin(metrics.OutcomeSuccess)
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionLogin,
		EntityType: audit.EntitySession,
		UserID:     formatID(user.ID),
	})
	s.events.Publish(AuthEvent{
		Event:    EventSessionCreated,
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})

	writeJSON(w, http.StatusOK, withUser("login successful", user))
}

func (s *Server) loginFailed(r *http.Request, username, reason string) {
	metrics.RecordLogin(metrics.OutcomeFailure)
	s.logger.Info("login failed", "username", username, "reason", reason)
	s.audit.Record(r.Context(), audit.AuditLog{
		Action:     audit.ActionLoginFailed,
		EntityType: audit.EntitySession,
		Details:    map[string]any{"username": username},
	})
	s.events.Publish(AuthEvent{
		Event:    EventLoginFailed,
		Outcome:  metrics.OutcomeFailure,
		Username: username,
	})
}

// handleLogout revokes the presented session if it is still valid and
// always clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cookie.clear(w)

	cookie, err := r.Cookie(s.cookie.name)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
		return
	}

	ctx := r.Context()
	authed, err := s.sessions.Validate(ctx, cookie.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidSession) && !errors.Is(err, auth.ErrMalformedToken) {
			s.logger.Warn("logout: session lookup failed", "error", err)
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
		return
	}

	if err := s.sessions.Revoke(ctx, authed.Session.ID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		s.writeAuthError(w, r, err)
		return
	}

	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionLogout,
		EntityType: audit.EntitySession,
		UserID:     formatID(authed.User.ID),
	})
	s.events.Publish(AuthEvent{
		Event:    EventSessionRevoked,
		UserID:   authed.User.ID,
		Username: authed.User.Username,
		Count:    1,
	})

	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// handleMe returns the current user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	authed := authFromContext(r.Context())
	writeJSON(w, http.StatusOK, withUser("current user", authed.User))
}

// handleUpdatePassword changes the caller's password, revokes all of their
// sessions and issues a fresh one.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	current := r.PostFormValue("current_password")
	next := r.PostFormValue("new_password")
	if current == "" || next == "" {
		writeBadRequest(w, "current_password and new_password are required")
		return
	}
	if !auth.IsValidPassword(next) {
		writeBadRequest(w, "new_password must be 8-256 characters")
		return
	}

	ctx := r.Context()
	user := authFromContext(ctx).User

	ok, err := s.hasher.Verify(user.PasswordHash, current)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	if !ok {
		s.writeAuthError(w, r, auth.ErrInvalidCredentials)
		return
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	created, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	s.cookie.set(w, created.Token)

	s.logger.Info("password changed", "user_id", user.ID, "sessions_revoked", revoked)
	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionPasswordChange,
		EntityType: audit.EntityUser,
		EntityID:   formatID(user.ID),
		UserID:     formatID(user.ID),
		Details:    map[string]any{"sessions_revoked": revoked},
	})
	s.events.Publish(AuthEvent{Event: EventSessionRevoked, UserID: user.ID, Count: revoked})
	s.events.Publish(AuthEvent{Event: EventSessionCreated, UserID: user.ID, Username: user.Username, Role: string(user.Role)})

	writeJSON(w, http.StatusOK, withUser("password updated", user))
}
