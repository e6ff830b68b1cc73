/*
Package randx provides functions for generating cryptographically secure random identifiers.

The game client tags every outbound request with a UUID request id, and the development
backend generates a throwaway signing secret when none is configured.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// SecretLength is the length of generated signing secrets.
	SecretLength = 48
)

// Base62 returns a random Base62 string of length n drawn from crypto/rand.
func Base62(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)

	maxIndex := big.NewInt(Base62Len)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, maxIndex)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		sb.WriteByte(Base62Chars[idx.Int64()])
	}

	return sb.String(), nil
}

// Secret returns a random signing secret.
func Secret() (string, error) {
	return Base62(SecretLength)
}

// RequestID returns a new random (version 4) UUID string for the X-Request-ID header.
func RequestID() string {
	return uuid.NewString()
}
