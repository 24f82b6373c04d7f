package auth

import (
	"context"
	"time"
)

// Store opens units of work against session and user persistence.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is a single transaction. Every read and write made through it
// is committed atomically by Commit. Rollback after Commit is a no-op, so
// callers always defer Rollback.
type UnitOfWork interface {
	// GetSession returns ErrSessionNotFound when no row has that id.
	GetSession(ctx context.Context, id string) (*Session, error)
	InsertSession(ctx context.Context, session *Session) error
	// DeleteSession returns ErrSessionNotFound when no row has that id.
	DeleteSession(ctx context.Context, id string) error
	// DeleteSessionsForUser removes every session of userID and returns the count.
	DeleteSessionsForUser(ctx context.Context, userID int64) (int64, error)
	// DeleteSessionsCreatedBefore removes every session created before cutoff.
	DeleteSessionsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// GetUser returns ErrUserNotFound when no row has that id.
	GetUser(ctx context.Context, id int64) (*User, error)
	Commit() error
	Rollback() error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
