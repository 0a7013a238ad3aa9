// Package random generates unguessable strings for OAuth2 state and nonce
// values.
package random

import (
	"crypto/rand"
	"fmt"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// largest multiple of len(alphabet) that fits in a byte; bytes at or above it
// are discarded so every character is equally likely.
const maxByte = 256 - 256%len(alphabet)

// SecureString returns n characters drawn uniformly from [0-9A-Za-z].
func SecureString(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("string length must be > 0")
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}

// State returns a value suitable for the OAuth2 state parameter.
func State() (string, error) {
	return SecureString(32)
}
