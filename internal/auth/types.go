package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// Password length bounds for account provisioning.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 256
)

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// IsValidPassword reports whether a new password satisfies the length bounds.
func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}

// User represents a provisioned account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the persisted half of a session token. Only the SHA-256 digest
// of the secret is kept; the secret itself lives in the client's token.
type Session struct {
	ID         string    `json:"session_id"`
	UserID     int64     `json:"user_id"`
	SecretHash string    `json:"-"` // never serialised
	CreatedAt  time.Time `json:"created_at"`
}

// ExpiresAt returns the instant after which the session is no longer valid.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// CreatedSession is returned by SessionManager.Create. Token is the only
// place the plaintext secret exists after creation returns.
type CreatedSession struct {
	Session *Session
	Token   string
}

// AuthenticatedUser is the result of a successful token validation.
type AuthenticatedUser struct {
	User    *User
	Session *Session
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrMalformedToken     = errors.New("malformed session token")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionUserMissing = errors.New("session references a missing user")
	ErrMalformedHash      = errors.New("malformed password hash")
	ErrForbidden          = errors.New("insufficient permissions")
)
