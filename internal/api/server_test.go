package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MrMouse2405/CSE362/internal/audit"
	"github.com/MrMouse2405/CSE362/internal/auth"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/config"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/database"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/logging"
	_ "github.com/MrMouse2405/CSE362/migrations" // registers the embedded schema
)

const (
	testPepper   = "test-pepper-key-at-least-32-characters!"
	testPassword = "correct-horse-battery"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []AuthEvent
}

func (p *recordingPublisher) Publish(e AuthEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event)
	}
	return out
}

// testEnv is a gateway over a fresh migrated SQLite database.
type testEnv struct {
	srv      *Server
	handler  http.Handler
	db       *database.DB
	users    *auth.SQLiteUserRepository
	sessions *auth.SessionManager
	hasher   *auth.PasswordHasher
	audit    *audit.SQLiteRepository
	events   *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "api-test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	env := &testEnv{
		db:       db,
		users:    auth.NewUserRepository(db.DB),
		sessions: auth.NewSessionManager(auth.NewSQLiteStore(db.DB)),
		hasher:   auth.NewPasswordHasher(testPepper, auth.WithArgonCost(1, 8*1024, 1)),
		audit:    audit.NewSQLiteRepository(db.DB),
		events:   &recordingPublisher{},
	}

	logger := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	env.srv, err = New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		},
		Session:  config.SessionConfig{CookieName: "session_token", CookieSecure: true},
		Logger:   logger,
		DB:       db,
		Users:    env.users,
		Sessions: env.sessions,
		Hasher:   env.hasher,
		Audit:    env.audit,
		Events:   env.events,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.handler = env.srv.Handler()
	return env
}

// seedUser creates an account with testPassword.
func (e *testEnv) seedUser(t *testing.T, username string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := e.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	u := &auth.User{Username: username, PasswordHash: hash, Role: role}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	return u
}

// do sends a request with optional form body and session cookie.
func (e *testEnv) do(t *testing.T, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// login returns the session cookie for username.
func (e *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v0/user/login",
		url.Values{"username": {username}, "password": {testPassword}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login(%s) status = %d, body = %s", username, w.Code, w.Body)
	}
	c := sessionCookie(w)
	if c == nil {
		t.Fatalf("login(%s) set no session cookie", username)
	}
	return c
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_token" {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no deps should fail")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v0/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" || resp["version"] != "test" || resp["database"] != "ok" {
		t.Errorf("health = %v", resp)
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	env := newTestEnv(t)
	env.db.Close() //nolint:errcheck // simulating an outage

	w := env.do(t, http.MethodGet, "/api/v0/health", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want 503", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cse362_password_hash_seconds") {
		t.Error("metrics output missing cse362_password_hash_seconds")
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v0/health", nil, nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v0/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		origin     string
		wantOrigin string
	}{
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v0/user/login", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			env.handler.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("preflight status = %d, want 204", w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("ACAO = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" && w.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("credentials not allowed for a permitted origin")
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	env := newTestEnv(t)

	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v0/nonexistent", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", w.Code)
	}
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t)
	env.srv.status = []StatusProvider{
		NamedStatus("mqtt", func(context.Context) error { return nil }),
	}
	env.handler = env.srv.Handler()
	env.seedUser(t, "admin1", auth.RoleAdmin)
	cookie := env.login(t, "admin1")

	w := env.do(t, http.MethodGet, "/api/v0/system", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("system status = %d, body = %s", w.Code, w.Body)
	}
	st := decode[SystemStatus](t, w)
	if st.Database == nil || st.Database.Users != 1 {
		t.Errorf("database = %+v", st.Database)
	}
	if st.Components["mqtt"] != "ok" {
		t.Errorf("components = %v", st.Components)
	}
}
