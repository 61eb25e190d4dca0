package token

import (
	"crypto/rand"
	"encoding/base64"
)

// Generate returns a crypto-secure random string of length n
// The random string is contains the following characters:
// ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_
func Generate(n int) (string, error) {
	// base64 increases size by ~33%
	b := make([]byte, n*3/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b)[0:n], nil
}

// MustGenerate is like Generate, but panics if the system random source fails
func MustGenerate(n int) string {
	s, err := Generate(n)
	if err != nil {
		panic(err)
	}

	return s
}
