package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/MrMouse2405/CSE362/internal/audit"
	"github.com/MrMouse2405/CSE362/internal/auth"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "stu", auth.RoleStudent)
	env.seedUser(t, "teach", auth.RoleTeacher)

	for _, name := range []string{"stu", "teach"} {
		t.Run(name, func(t *testing.T) {
			cookie := env.login(t, name)

			routes := []struct {
				method, path string
			}{
				{http.MethodGet, "/api/v0/user/list"},
				{http.MethodPost, "/api/v0/user/create"},
				{http.MethodDelete, "/api/v0/user/delete/1"},
				{http.MethodPatch, "/api/v0/user/update/role/1"},
				{http.MethodGet, "/api/v0/audit"},
				{http.MethodGet, "/api/v0/system"},
			}
			for _, rt := range routes {
				if w := env.do(t, rt.method, rt.path, nil, cookie); w.Code != http.StatusForbidden {
					t.Errorf("%s %s status = %d, want 403", rt.method, rt.path, w.Code)
				}
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "stu", auth.RoleStudent)
	other := env.seedUser(t, "teach", auth.RoleTeacher)
	cookie := env.login(t, "stu")

	w := env.do(t, http.MethodGet, "/api/v0/user/get/"+formatID(other.ID), nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := decode[messageResponse](t, w).User; got == nil || got.Username != "teach" {
		t.Errorf("get user = %+v", got)
	}

	if w := env.do(t, http.MethodGet, "/api/v0/user/get/9999", nil, cookie); w.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v0/user/get/abc", nil, cookie); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin1", auth.RoleAdmin)
	cookie := env.login(t, "admin1")

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantRole auth.Role
	}{
		{"default role", url.Values{"username": {"newbie"}, "password": {"password123"}}, http.StatusCreated, auth.RoleUnassigned},
		{"teacher", url.Values{"username": {"prof"}, "password": {"password123"}, "role": {"teacher"}}, http.StatusCreated, auth.RoleTeacher},
		{"duplicate", url.Values{"username": {"newbie"}, "password": {"password123"}}, http.StatusConflict, ""},
		{"bad role", url.Values{"username": {"x1"}, "password": {"password123"}, "role": {"wizard"}}, http.StatusBadRequest, ""},
		{"root by admin", url.Values{"username": {"x2"}, "password": {"password123"}, "role": {"root"}}, http.StatusForbidden, ""},
		{"short password", url.Values{"username": {"x3"}, "password": {"short"}}, http.StatusBadRequest, ""},
		{"bad username", url.Values{"username": {"has space"}, "password": {"password123"}}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v0/user/create", tt.form, cookie)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantCode, w.Body)
			}
			if tt.wantCode != http.StatusCreated {
				return
			}
			if got := decode[messageResponse](t, w).User; got == nil || got.Role != tt.wantRole {
				t.Errorf("created user = %+v, want role %s", got, tt.wantRole)
			}
		})
	}

	w := env.do(t, http.MethodGet, "/api/v0/user/list", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if n := decode[struct{ Count int }](t, w).Count; n != 3 {
		t.Errorf("user count = %d, want 3", n)
	}
}

func TestRootCanCreateRoot(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", auth.RoleRoot)
	cookie := env.login(t, "root")

	w := env.do(t, http.MethodPost, "/api/v0/user/create",
		url.Values{"username": {"root2"}, "password": {"password123"}, "role": {"root"}}, cookie)
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin1", auth.RoleAdmin)
	root := env.seedUser(t, "root", auth.RoleRoot)
	victim := env.seedUser(t, "stu", auth.RoleStudent)
	victimCookie := env.login(t, "stu")
	cookie := env.login(t, "admin1")

	if w := env.do(t, http.MethodDelete, "/api/v0/user/delete/"+formatID(admin.ID), nil, cookie); w.Code != http.StatusForbidden {
		t.Errorf("delete self status = %d, want 403", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v0/user/delete/"+formatID(root.ID), nil, cookie); w.Code != http.StatusForbidden {
		t.Errorf("delete root status = %d, want 403", w.Code)
	}

	w := env.do(t, http.MethodDelete, "/api/v0/user/delete/"+formatID(victim.ID), nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body)
	}
	if w := env.do(t, http.MethodGet, "/api/v0/user/me", nil, victimCookie); w.Code != http.StatusUnauthorized {
		t.Errorf("deleted user's session status = %d, want 401", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v0/user/delete/"+formatID(victim.ID), nil, cookie); w.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", w.Code)
	}
}

func TestUpdateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin1", auth.RoleAdmin)
	root := env.seedUser(t, "root", auth.RoleRoot)
	stu := env.seedUser(t, "stu", auth.RoleStudent)
	cookie := env.login(t, "admin1")

	w := env.do(t, http.MethodPatch, "/api/v0/user/update/name/"+formatID(stu.ID), url.Values{"username": {"student1"}}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body = %s", w.Code, w.Body)
	}
	got, err := env.users.GetByID(context.Background(), stu.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "student1" {
		t.Errorf("username = %q, want student1", got.Username)
	}

	if w := env.do(t, http.MethodPatch, "/api/v0/user/update/name/"+formatID(stu.ID), url.Values{"username": {"admin1"}}, cookie); w.Code != http.StatusConflict {
		t.Errorf("rename to taken status = %d, want 409", w.Code)
	}
	if w := env.do(t, http.MethodPatch, "/api/v0/user/update/name/"+formatID(root.ID), url.Values{"username": {"notroot"}}, cookie); w.Code != http.StatusForbidden {
		t.Errorf("rename root status = %d, want 403", w.Code)
	}
}

func TestUpdateRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin1", auth.RoleAdmin)
	root := env.seedUser(t, "root", auth.RoleRoot)
	stu := env.seedUser(t, "stu", auth.RoleStudent)
	cookie := env.login(t, "admin1")

	tests := []struct {
		name     string
		id       int64
		role     string
		wantCode int
	}{
		{"promote student", stu.ID, "teacher", http.StatusOK},
		{"own role", admin.ID, "student", http.StatusForbidden},
		{"grant root", stu.ID, "root", http.StatusForbidden},
		{"demote root", root.ID, "admin", http.StatusForbidden},
		{"invalid role", stu.ID, "wizard", http.StatusBadRequest},
		{"unknown user", 9999, "student", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, "/api/v0/user/update/role/"+formatID(tt.id), url.Values{"role": {tt.role}}, cookie)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.wantCode, w.Body)
			}
		})
	}

	got, err := env.users.GetByID(context.Background(), stu.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Role != auth.RoleTeacher {
		t.Errorf("role = %s, want teacher", got.Role)
	}
}

func TestRevokeUserSessions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin1", auth.RoleAdmin)
	stu := env.seedUser(t, "stu", auth.RoleStudent)
	a := env.login(t, "stu")
	b := env.login(t, "stu")
	cookie := env.login(t, "admin1")

	w := env.do(t, http.MethodDelete, "/api/v0/user/sessions/"+formatID(stu.ID), nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("revoke status = %d, body = %s", w.Code, w.Body)
	}
	if n := decode[struct{ Revoked int64 }](t, w).Revoked; n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	for _, c := range []*http.Cookie{a, b} {
		if w := env.do(t, http.MethodGet, "/api/v0/user/me", nil, c); w.Code != http.StatusUnauthorized {
			t.Errorf("revoked session status = %d, want 401", w.Code)
		}
	}
	if w := env.do(t, http.MethodGet, "/api/v0/user/me", nil, cookie); w.Code != http.StatusOK {
		t.Errorf("admin session status = %d, want 200", w.Code)
	}
}

func TestListAuditLogs(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin1", auth.RoleAdmin)
	cookie := env.login(t, "admin1")

	w := env.do(t, http.MethodPost, "/api/v0/user/create",
		url.Values{"username": {"newbie"}, "password": {"password123"}}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/v0/audit?action=create&user_id="+formatID(admin.ID), nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("audit status = %d, body = %s", w.Code, w.Body)
	}
	result := decode[audit.ListResult](t, w)
	if result.Total != 1 || len(result.Logs) != 1 {
		t.Fatalf("audit result = %+v", result)
	}
	if got := result.Logs[0]; got.EntityType != audit.EntityUser || got.Details["username"] != "newbie" {
		t.Errorf("audit entry = %+v", got)
	}

	if w := env.do(t, http.MethodGet, "/api/v0/audit?limit=abc", nil, cookie); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}
