// Package config handles loading and validating CSE362 Core configuration.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, and the process environment. LoadEnvFile can populate the
// environment from a .env file before Load runs.
//
// Security Considerations:
//   - SECRET_KEY and ROOT_USER_PASSWORD should be supplied via the environment
//   - The config file should have restricted permissions (0600)
//   - Rotating SECRET_KEY invalidates every stored password hash
package config
