// Package internal holds token generation shared by the root package. Nothing
// here is part of the public API.
package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const tokenRawSize = 32

// NewSessionToken returns a fresh high-entropy opaque token: 32 random bytes,
// base64url without padding. The token is a pure lookup key and is never
// derived from caller-supplied input.
func NewSessionToken() (string, error) {
	var raw [tokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidateTokenShape rejects strings that cannot be a generated token before
// any store round trip. It is a shape check, not an authenticity check.
func ValidateTokenShape(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return errors.New("invalid session token encoding")
	}
	if len(raw) != tokenRawSize {
		return errors.New("invalid session token size")
	}
	return nil
}
