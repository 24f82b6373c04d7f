package audit

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrMouse2405/CSE362/internal/infrastructure/database"
	_ "github.com/MrMouse2405/CSE362/migrations" // registers the embedded schema
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "audit-test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

func TestCreateFillsDefaults(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	entry := &AuditLog{
		Action:     ActionLogin,
		EntityType: EntitySession,
		UserID:     "7",
		Details:    map[string]any{"username": "alice"},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" || entry.Source != SourceAPI || entry.CreatedAt.IsZero() {
		t.Errorf("defaults not filled: %+v", entry)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Logs) != 1 {
		t.Fatalf("Total = %d, len = %d, want 1", result.Total, len(result.Logs))
	}
	got := result.Logs[0]
	if got.ID != entry.ID || got.UserID != "7" || got.EntityID != "" {
		t.Errorf("List()[0] = %+v", got)
	}
	if got.Details["username"] != "alice" {
		t.Errorf("Details = %v", got.Details)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, entry.CreatedAt)
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []AuditLog{
		{Action: ActionCreate, EntityType: EntityUser, EntityID: "2", UserID: "1", CreatedAt: base},
		{Action: ActionLogin, EntityType: EntitySession, UserID: "2", CreatedAt: base.Add(time.Second)},
		{Action: ActionDelete, EntityType: EntityUser, EntityID: "2", UserID: "1", CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  Filter
		actions []string
	}{
		{"all newest first", Filter{}, []string{ActionDelete, ActionLogin, ActionCreate}},
		{"by entity", Filter{EntityType: EntityUser, EntityID: "2"}, []string{ActionDelete, ActionCreate}},
		{"by actor", Filter{UserID: "2"}, []string{ActionLogin}},
		{"by action", Filter{Action: ActionCreate}, []string{ActionCreate}},
		{"paged", Filter{Limit: 1, Offset: 1}, []string{ActionLogin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(result.Logs) != len(tt.actions) {
				t.Fatalf("len = %d, want %d", len(result.Logs), len(tt.actions))
			}
			for i, want := range tt.actions {
				if result.Logs[i].Action != want {
					t.Errorf("Logs[%d].Action = %q, want %q", i, result.Logs[i].Action, want)
				}
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{-1: defaultLimit, 0: defaultLimit, 10: 10, 1000: maxLimit} {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

type failingRepo struct{ Repository }

func (failingRepo) Create(context.Context, *AuditLog) error { return errors.New("disk full") }

func TestRecorderSwallowsErrors(t *testing.T) {
	rec := NewRecorder(failingRepo{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec.Record(context.Background(), AuditLog{Action: ActionLogout, EntityType: EntitySession})

	var nilRec *Recorder
	nilRec.Record(context.Background(), AuditLog{})

	NewRecorder(nil, nil).Record(context.Background(), AuditLog{})
}
