// Package logging provides structured logging for CSE362 Core.
//
// It wraps log/slog with JSON or text output, level filtering, default
// service and version fields, and redaction of any attribute whose key
// mentions a password, secret, token, cookie or authorization header.
//
// Logging is configured via the logging section of the config file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
package logging
