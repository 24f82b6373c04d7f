package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrMouse2405/CSE362/internal/audit"
	"github.com/MrMouse2405/CSE362/internal/auth"
)

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withUser("user found", user))
}

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": out,
		"count": len(out),
	})
}

// handleCreateUser provisions an account from form fields username,
// password and optional role.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if !auth.IsValidUsername(username) {
		writeBadRequest(w, "username must be 1-64 characters of letters, digits, '.', '_' or '-'")
		return
	}
	if !auth.IsValidPassword(password) {
		writeBadRequest(w, "password must be 8-256 characters")
		return
	}

	role := auth.RoleUnassigned
	if v := r.PostFormValue("role"); v != "" {
		parsed, err := auth.ParseRole(v)
		if err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		role = parsed
	}

	ctx := r.Context()
	actor := authFromContext(ctx).User
	if !auth.CanAssign(actor.Role, role) {
		writeForbidden(w, "only root can create root accounts")
		return
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	user := &auth.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role, "created_by", actor.ID)
	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionCreate,
		EntityType: audit.EntityUser,
		EntityID:   formatID(user.ID),
		UserID:     formatID(actor.ID),
		Details:    map[string]any{"username": user.Username, "role": user.Role},
	})
	s.events.Publish(AuthEvent{Event: EventUserCreated, UserID: user.ID, Username: user.Username, Role: string(user.Role)})

	writeJSON(w, http.StatusCreated, withUser("user created", user))
}

// handleDeleteUser removes an account. Its sessions go with it.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	actor := authFromContext(ctx).User
	if id == actor.ID {
		writeForbidden(w, "cannot delete your own account")
		return
	}

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	if target.Role == auth.RoleRoot {
		writeForbidden(w, "root accounts cannot be deleted")
		return
	}

	if err := s.users.Delete(ctx, id); err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", actor.ID)
	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionDelete,
		EntityType: audit.EntityUser,
		EntityID:   formatID(id),
		UserID:     formatID(actor.ID),
		Details:    map[string]any{"username": target.Username},
	})
	s.events.Publish(AuthEvent{Event: EventUserDeleted, UserID: id, Username: target.Username})

	writeJSON(w, http.StatusOK, withUser("user deleted", target))
}

// handleUpdateUsername renames an account from the form field username.
func (s *Server) handleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	username := r.PostFormValue("username")
	if !auth.IsValidUsername(username) {
		writeBadRequest(w, "username must be 1-64 characters of letters, digits, '.', '_' or '-'")
		return
	}

	ctx := r.Context()
	actor := authFromContext(ctx).User
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	if !auth.CanManage(actor.Role, target.Role) {
		writeForbidden(w, "only root can modify root accounts")
		return
	}

	if err := s.users.UpdateUsername(ctx, id, username); err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	previous := target.Username
	target.Username = username

	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityUser,
		EntityID:   formatID(id),
		UserID:     formatID(actor.ID),
		Details:    map[string]any{"field": "username", "from": previous, "to": username},
	})

	writeJSON(w, http.StatusOK, withUser("username updated", target))
}

// handleUpdateRole changes an account's role from the form field role.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	role, err := auth.ParseRole(r.PostFormValue("role"))
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	ctx := r.Context()
	actor := authFromContext(ctx).User
	if id == actor.ID && role != actor.Role {
		writeForbidden(w, "cannot change your own role")
		return
	}

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	if !auth.CanManage(actor.Role, target.Role) || !auth.CanAssign(actor.Role, role) {
		writeForbidden(w, "only root can modify root accounts or grant root")
		return
	}

	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	previous := target.Role
	target.Role = role

	s.logger.Info("user role changed", "user_id", id, "from", previous, "to", role, "changed_by", actor.ID)
	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityUser,
		EntityID:   formatID(id),
		UserID:     formatID(actor.ID),
		Details:    map[string]any{"field": "role", "from": previous, "to": role},
	})

	writeJSON(w, http.StatusOK, withUser("role updated", target))
}

// handleRevokeUserSessions force-logs-out every session of a user.
func (s *Server) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	actor := authFromContext(ctx).User
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	if !auth.CanManage(actor.Role, target.Role) {
		writeForbidden(w, "only root can modify root accounts")
		return
	}

	n, err := s.sessions.RevokeAllForUser(ctx, id)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.logger.Info("user sessions revoked", "user_id", id, "count", n, "revoked_by", actor.ID)
	s.audit.Record(ctx, audit.AuditLog{
		Action:     audit.ActionRevokeSessions,
		EntityType: audit.EntityUser,
		EntityID:   formatID(id),
		UserID:     formatID(actor.ID),
		Details:    map[string]any{"count": n},
	})
	s.events.Publish(AuthEvent{Event: EventSessionRevoked, UserID: id, Count: n})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "sessions revoked",
		"revoked": n,
	})
}

// userIDParam parses the {id} route parameter, writing 400 when invalid.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid user id")
		return 0, false
	}
	return id, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
