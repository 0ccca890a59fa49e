// Package secrets handles credential material: random token generation,
// bcrypt hashing, and timing-safe fingerprint comparison.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "custodia/pkg/domain-errors"
)

// Generate creates a cryptographically secure random secret, base64-encoded.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of the provided secret for storage.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// MatchFingerprint compares a presented credential fingerprint against the
// provisioned value without leaking timing information.
//
// Provisioned records come in two forms: new rows store a bcrypt hash of the
// fingerprint ("$2..." prefix), older rows store the raw hex fingerprint.
// Both paths are timing-safe; bcrypt comparison is inherently so, raw values
// go through subtle.ConstantTimeCompare. Length is folded into the compare so
// mismatched lengths cost the same as mismatched bytes.
func MatchFingerprint(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return constantTimeEqual(stored, presented)
}

func constantTimeEqual(a, b string) bool {
	lengthsMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	// Compare against self when lengths differ so the byte loop still runs.
	other := b
	if lengthsMatch != 1 {
		other = a
	}
	bytesMatch := subtle.ConstantTimeCompare([]byte(a), []byte(other))
	return lengthsMatch == 1 && bytesMatch == 1
}
