package encryption

import (
	"crypto/rand"
	"encoding/hex"
)

// Nonce generates a random 16-byte hex-encoded string
func Nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
