// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	"crypto/rand"
	"encoding/hex"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID returns a random 16 character identifier used as a primary key
func NewID() string {
	return gonanoid.MustGenerate(idCharset, 16)
}

// RequestID returns a short identifier attached to every request and log line
func RequestID() string {
	return gonanoid.MustGenerate(idCharset, 10)
}

// GenerateToken returns n random bytes hex encoded. Used for one-time
// verification tokens
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
