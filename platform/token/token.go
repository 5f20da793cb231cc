// Package token generates opaque random credentials.
package token

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomToken returns size random bytes encoded as URL-safe base64.
func GenerateRandomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
