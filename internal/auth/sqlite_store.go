package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sessionTimeFormat keeps sub-second precision so expiry comparisons are exact.
const sessionTimeFormat = time.RFC3339Nano

// SQLiteStore implements Store with one *sql.Tx per unit of work.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a Store over an open SQLite handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Begin starts a transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &sqliteUnit{tx: tx}, nil
}

type sqliteUnit struct {
	tx *sql.Tx
}

func (u *sqliteUnit) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	var createdAt string

	err := u.tx.QueryRowContext(ctx,
		`SELECT session_id, user_id, secret_hash, created_at FROM sessions WHERE session_id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.SecretHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	s.CreatedAt, err = time.Parse(sessionTimeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing session created_at %q: %w", createdAt, err)
	}
	return &s, nil
}

func (u *sqliteUnit) InsertSession(ctx context.Context, s *Session) error {
	_, err := u.tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, secret_hash, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.SecretHash, s.CreatedAt.UTC().Format(sessionTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (u *sqliteUnit) DeleteSession(ctx context.Context, id string) error {
	result, err := u.tx.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (u *sqliteUnit) DeleteSessionsForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := u.tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions for user: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

func (u *sqliteUnit) DeleteSessionsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	// RFC3339Nano trims trailing zeros, so created_at does not sort lexically.
	// Unparseable rows are treated as stale.
	rows, err := u.tx.QueryContext(ctx, "SELECT session_id, created_at FROM sessions")
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	var stale []string
	for rows.Next() {
		var id, createdAt string
		if err := rows.Scan(&id, &createdAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning session: %w", err)
		}
		t, err := time.Parse(sessionTimeFormat, createdAt)
		if err != nil || t.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating sessions: %w", err)
	}
	rows.Close()

	var count int64
	for _, id := range stale {
		result, err := u.tx.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", id)
		if err != nil {
			return count, fmt.Errorf("deleting expired session: %w", err)
		}
		n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		count += n
	}
	return count, nil
}

func (u *sqliteUnit) GetUser(ctx context.Context, id int64) (*User, error) {
	return scanUser(u.tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

func (u *sqliteUnit) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (u *sqliteUnit) Rollback() error {
	err := u.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}
