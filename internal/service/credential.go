package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// credentialDelimiter joins the opaque secret and the signed refresh
// token. Both halves are base64url-derived, so the delimiter can never
// occur inside either component.
const credentialDelimiter = "|"

// Refresh credential failure taxonomy. All of these surface to clients
// as the same generic unauthorized (or bad request, for malformed input)
// response; the distinct sentinels exist for internal branching and for
// tests, never for client-visible disambiguation.
var (
	ErrCredentialMalformed = errors.New("refresh credential malformed")
	ErrTokenInvalid        = errors.New("refresh token signature invalid")
	ErrTokenExpired        = errors.New("refresh token expired")
	ErrTokenRevoked        = errors.New("refresh token revoked")
	ErrTokenReused         = errors.New("refresh token lost rotation race")
	ErrTokenNotFound       = errors.New("refresh token not found")
)

// newOpaqueSecret returns a high-entropy random component for the client
// refresh credential. 32 bytes of entropy, base64url without padding.
func newOpaqueSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// composeCredential builds the string the client actually holds.
func composeCredential(opaqueSecret, signedToken string) string {
	return opaqueSecret + credentialDelimiter + signedToken
}

// splitCredential parses a client credential into its two components.
// Anything other than exactly one delimiter with two non-empty halves is
// malformed input, not a lookup miss.
func splitCredential(raw string) (opaqueSecret, signedToken string, err error) {
	parts := strings.Split(raw, credentialDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrCredentialMalformed
	}
	return parts[0], parts[1], nil
}

// fingerprintCredential hashes the full credential string for storage
// lookup. Covering both halves binds them together: holding only the
// signed token, or only the opaque secret, yields a different digest and
// therefore no record.
func fingerprintCredential(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
