package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// secureRandomBytes is the entropy of every generated id or secret (192 bits).
const secureRandomBytes = 24

// GenerateSecureRandomString returns a URL-safe string backed by 192 bits
// from crypto/rand. The alphabet is A-Z a-z 0-9 - _ so the result never
// contains the token separator.
func GenerateSecureRandomString() (string, error) {
	b := make([]byte, secureRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
