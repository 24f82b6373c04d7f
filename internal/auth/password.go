package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/MrMouse2405/CSE362/internal/metrics"
)

// Argon2id parameters (OWASP 2025 recommendation).
const (
	argonTime    = 3         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1         // parallelism
	argonKeyLen  = 32        // output hash length
	argonSaltLen = 16        // salt length
)

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

var defaultArgonParams = argonParams{time: argonTime, memory: argonMemory, threads: argonThreads}

// PasswordHasher peppers and hashes user passwords.
//
// The pepper is an HMAC-SHA256 keyed with a server-held secret, applied
// before Argon2id. A stolen database is useless for offline cracking
// without the running application's secret as well.
//
// PasswordHasher holds no mutable state and is safe for concurrent use.
type PasswordHasher struct {
	pepperKey []byte
	params    argonParams
}

// HasherOption configures a PasswordHasher.
type HasherOption func(*PasswordHasher)

// WithArgonCost overrides the Argon2id cost for new hashes. Existing hashes
// keep verifying with the cost encoded in them. Zero values are ignored.
func WithArgonCost(iterations, memoryKiB uint32, threads uint8) HasherOption {
	return func(h *PasswordHasher) {
		if iterations > 0 {
			h.params.time = iterations
		}
		if memoryKiB > 0 {
			h.params.memory = memoryKiB
		}
		if threads > 0 {
			h.params.threads = threads
		}
	}
}

// NewPasswordHasher creates a hasher keyed with pepperKey.
func NewPasswordHasher(pepperKey string, opts ...HasherOption) *PasswordHasher {
	h := &PasswordHasher{
		pepperKey: []byte(pepperKey),
		params:    defaultArgonParams,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Pepper returns the hex HMAC-SHA256 of password under the server key.
func (h *PasswordHasher) Pepper(password string) string {
	mac := hmac.New(sha256.New, h.pepperKey)
	mac.Write([]byte(password)) //nolint:errcheck // hash.Hash.Write never returns an error
	return hex.EncodeToString(mac.Sum(nil))
}

// Hash peppers a plaintext password, hashes it with Argon2id and returns it
// in PHC string format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func (h *PasswordHasher) Hash(password string) (string, error) {
	defer metrics.ObservePasswordHash(time.Now())

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	p := h.params
	hash := argon2.IDKey([]byte(h.Pepper(password)), salt, p.time, p.memory, p.threads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks a plaintext password against an Argon2id PHC hash string.
// The error is non-nil only when encodedHash cannot be parsed.
func (h *PasswordHasher) Verify(encodedHash, password string) (bool, error) {
	defer metrics.ObservePasswordHash(time.Now())

	salt, hash, params, err := decodePHC(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}

	candidate := argon2.IDKey([]byte(h.Pepper(password)), salt, params.time, params.memory, params.threads, uint32(len(hash))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

// decodePHC parses an Argon2id PHC string format into its components.
func decodePHC(encoded string) (salt, hash []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}
	if params.time == 0 || params.threads == 0 {
		return nil, nil, params, fmt.Errorf("invalid parameters: %s", parts[3])
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}
	if len(hash) == 0 {
		return nil, nil, params, fmt.Errorf("empty hash")
	}

	return salt, hash, params, nil
}
