// Package auth provides session authentication and role-based
// authorisation for CSE362 Core.
//
// Authentication uses opaque, server-side sessions:
//   - Passwords are peppered with HMAC-SHA256 under a server secret, then
//     hashed with Argon2id (OWASP 2025 parameters) in PHC format
//   - A session token is "<session_id>.<secret>"; only SHA-256(secret) is
//     stored, compared in constant time
//   - Sessions expire 24 hours after creation and are deleted lazily when
//     presented after expiry, or by the optional SessionSweeper
//   - Revocation is a row delete, effective on the next request
//
// Authorisation is a fixed five-role hierarchy:
//
//	root > admin > {teacher, student} > unassigned
//
// RoleChecker values are immutable allow-sets built at startup. The
// unassigned role is a member of none of them.
package auth
