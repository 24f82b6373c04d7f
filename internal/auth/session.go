package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrMouse2405/CSE362/internal/metrics"
)

// DefaultSessionTTL is how long a session stays valid after creation.
const DefaultSessionTTL = 24 * time.Hour

// tokenSeparator joins the session id and secret in a SessionToken.
const tokenSeparator = "."

// logIDPrefixLen is how much of a session id may appear in logs.
const logIDPrefixLen = 8

// SessionManager issues, validates and revokes opaque session tokens.
//
// A token is "<session_id>.<secret>". The id is the lookup key; only the
// SHA-256 of the secret is stored, so a leaked database cannot be used to
// forge a token. Expiry is enforced lazily: an expired session is deleted
// when it is next presented.
//
// SessionManager holds no mutable state and is safe for concurrent use.
type SessionManager struct {
	store    Store
	clock    Clock
	ttl      time.Duration
	logger   *slog.Logger
	generate func() (string, error)
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithClock overrides the time source.
func WithClock(c Clock) SessionOption {
	return func(m *SessionManager) { m.clock = c }
}

// WithTTL overrides DefaultSessionTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithLogger sets the logger for session lifecycle events.
func WithLogger(l *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTokenGenerator overrides GenerateSecureRandomString for ids and secrets.
func WithTokenGenerator(gen func() (string, error)) SessionOption {
	return func(m *SessionManager) {
		if gen != nil {
			m.generate = gen
		}
	}
}

// NewSessionManager creates a SessionManager backed by store.
func NewSessionManager(store Store, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store:    store,
		clock:    SystemClock{},
		ttl:      DefaultSessionTTL,
		logger:   slog.Default(),
		generate: GenerateSecureRandomString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// HashSecret returns the hex SHA-256 digest stored for a token secret.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// Create starts a new session for userID and returns it with its token.
// The token is never persisted and cannot be recovered later.
func (m *SessionManager) Create(ctx context.Context, userID int64) (*CreatedSession, error) {
	id, err := m.generate()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}
	secret, err := m.generate()
	if err != nil {
		return nil, fmt.Errorf("generating session secret: %w", err)
	}

	session := &Session{
		ID:         id,
		UserID:     userID,
		SecretHash: HashSecret(secret),
		CreatedAt:  m.clock.Now().UTC(),
	}

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback() //nolint:errcheck // rollback is no-op after commit

	if err := uow.InsertSession(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	m.logger.Debug("session created", "session", logID(id), "user_id", userID)

	return &CreatedSession{
		Session: session,
		Token:   id + tokenSeparator + secret,
	}, nil
}

// Validate resolves a token to its user.
//
// A token that does not split into two non-empty halves returns
// ErrMalformedToken. An unknown id, an expired session or a wrong secret
// all return ErrInvalidSession; the wrapped text carries the reason for
// server-side logs only. An expired session is deleted before returning.
func (m *SessionManager) Validate(ctx context.Context, token string) (*AuthenticatedUser, error) {
	id, secret, ok := splitToken(token)
	if !ok {
		metrics.RecordValidation(metrics.OutcomeMalformed)
		return nil, ErrMalformedToken
	}

	uow, err := m.store.Begin(ctx)
	if err != nil {
		metrics.RecordValidation(metrics.OutcomeError)
		return nil, err
	}
	defer uow.Rollback() //nolint:errcheck // rollback is no-op after commit

	session, err := uow.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			metrics.RecordValidation(metrics.OutcomeInvalid)
			return nil, fmt.Errorf("%w: unknown session", ErrInvalidSession)
		}
		metrics.RecordValidation(metrics.OutcomeError)
		return nil, err
	}

	if m.clock.Now().After(session.ExpiresAt(m.ttl)) {
		if err := uow.DeleteSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			metrics.RecordValidation(metrics.OutcomeError)
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			metrics.RecordValidation(metrics.OutcomeError)
			return nil, err
		}
		m.logger.Debug("expired session removed", "session", logID(id), "user_id", session.UserID)
		metrics.RecordValidation(metrics.OutcomeExpired)
		return nil, fmt.Errorf("%w: expired", ErrInvalidSession)
	}

	if subtle.ConstantTimeCompare([]byte(HashSecret(secret)), []byte(session.SecretHash)) != 1 {
		metrics.RecordValidation(metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: secret mismatch", ErrInvalidSession)
	}

	user, err := uow.GetUser(ctx, session.UserID)
	if err != nil {
		metrics.RecordValidation(metrics.OutcomeError)
		if errors.Is(err, ErrUserNotFound) {
			m.logger.Error("session references missing user", "session", logID(id), "user_id", session.UserID)
			return nil, fmt.Errorf("%w: user %d", ErrSessionUserMissing, session.UserID)
		}
		return nil, err
	}

	metrics.RecordValidation(metrics.OutcomeSuccess)
	return &AuthenticatedUser{User: user, Session: session}, nil
}

// Revoke deletes a session. It returns ErrSessionNotFound if the session
// does not exist, including when it was already revoked.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback() //nolint:errcheck // rollback is no-op after commit

	if err := uow.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	metrics.RecordRevoked(1)
	m.logger.Debug("session revoked", "session", logID(sessionID))
	return nil
}

// RevokeAllForUser deletes every session belonging to userID and returns
// how many were removed.
func (m *SessionManager) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer uow.Rollback() //nolint:errcheck // rollback is no-op after commit

	n, err := uow.DeleteSessionsForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}

	metrics.RecordRevoked(n)
	m.logger.Debug("sessions revoked for user", "user_id", userID, "count", n)
	return n, nil
}

// DeleteExpired removes every session whose lifetime has elapsed.
func (m *SessionManager) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := m.clock.Now().UTC().Add(-m.ttl)

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer uow.Rollback() //nolint:errcheck // rollback is no-op after commit

	n, err := uow.DeleteSessionsCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// splitToken returns the id and secret of a well-formed token.
func splitToken(token string) (id, secret string, ok bool) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" { //nolint:mnd // id and secret
		return "", "", false
	}
	return parts[0], parts[1], true
}

// logID truncates a session id for logging.
func logID(id string) string {
	if len(id) <= logIDPrefixLen {
		return id
	}
	return id[:logIDPrefixLen]
}
