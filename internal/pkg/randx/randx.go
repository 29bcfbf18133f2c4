/*
Package randx provides functions for generating cryptographically secure random
identifiers.

It is primarily used to generate the fixed-width Base62 join codes that players
exchange out-of-band to enter a session, and standard UUID identifiers for
connections and sessions.
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

	// JoinCodeLength is the fixed width of a session join code.
	JoinCodeLength = 6
)

// JoinCode generates a Base62 encoded join code using crypto/rand.
// It returns a string of length JoinCodeLength and any error encountered.
func JoinCode() (string, error) {
	result := make([]byte, JoinCodeLength)

	for i := 0; i < JoinCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for join code: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValidJoinCode checks if the given string is a well-formed join code:
// exactly JoinCodeLength characters, all from the Base62 set.
func IsValidJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// ConnectionID generates a UUID v4 string identifying a single live transport channel.
func ConnectionID() string {
	return uuid.New().String()
}

// SessionID generates a UUID v4 string identifying a multiplayer session instance.
func SessionID() string {
	return uuid.New().String()
}

// MessageID generates a UUID v4 string identifying a broadcast chat message.
func MessageID() string {
	return uuid.New().String()
}
