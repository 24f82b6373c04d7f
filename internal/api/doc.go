// Package api is the CSE362 authentication gateway.
//
// This package provides:
//   - Login, logout and password change backed by opaque session cookies
//   - User administration guarded by role checks
//   - Audit log and system status endpoints for administrators
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Prometheus exposition on /metrics
//
// # Sessions
//
// The session cookie holds "<session_id>.<secret>". sessionMiddleware
// resolves it through auth.SessionManager.Validate once per request and
// puts the AuthenticatedUser in the request context; handlers read it with
// authFromContext and never touch the token. requireRole composes an
// auth.RoleChecker at route registration.
//
// # Errors
//
// writeAuthError maps auth error kinds to status codes in one place. All
// session failures are a plain 401 "invalid session"; the reason is logged.
//
// # Events
//
// Login, logout and account changes are published through an
// EventPublisher, which fans out to MQTT and InfluxDB when configured.
package api
