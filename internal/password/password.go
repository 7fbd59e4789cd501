// Package password verifies stored credential hashes.
//
// Two stored formats are understood: passlib-style PBKDF2-SHA256 strings
// ("$pbkdf2-sha256$<rounds>$<salt>$<checksum>") and bcrypt. Malformed or
// unknown hashes never raise an error; they simply fail verification.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinLength and MaxLength bound the accepted plaintext length. Anything
	// outside the range is treated as invalid credentials.
	MinLength = 6
	MaxLength = 999

	pbkdf2Prefix  = "$pbkdf2-sha256$"
	defaultRounds = 29000
	saltLength    = 16
	keyLength     = 32
	maxRounds     = 10_000_000
)

// DummyHash is a well-formed PBKDF2 hash that matches no password. Verifying
// against it costs the same as verifying a real hash.
//
//nolint:gosec // G101: not a credential.
const DummyHash = "$pbkdf2-sha256$29000$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// b64 is passlib's "adapted base64": standard alphabet with '.' for '+', no padding.
var b64 = base64.RawStdEncoding

// Verifier checks plaintexts against stored hashes.
type Verifier struct{}

// NewVerifier constructs a Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify reports whether plaintext matches storedHash.
func (v *Verifier) Verify(plaintext, storedHash string) bool {
	if !LengthOK(plaintext) {
		return false
	}
	switch {
	case strings.HasPrefix(storedHash, pbkdf2Prefix):
		return verifyPBKDF2(plaintext, storedHash)
	case strings.HasPrefix(storedHash, "$2a$"), strings.HasPrefix(storedHash, "$2b$"), strings.HasPrefix(storedHash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
	default:
		return false
	}
}

// LengthOK reports whether plaintext is within [MinLength, MaxLength].
func LengthOK(plaintext string) bool {
	return len(plaintext) >= MinLength && len(plaintext) <= MaxLength
}

// Hash produces a PBKDF2-SHA256 string in the same format Verify reads.
func Hash(plaintext string) (string, error) {
	if !LengthOK(plaintext) {
		return "", fmt.Errorf("password must be between %d and %d characters", MinLength, MaxLength)
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := pbkdf2.Key([]byte(plaintext), salt, defaultRounds, keyLength, sha256.New)
	return fmt.Sprintf("%s%d$%s$%s", pbkdf2Prefix, defaultRounds, encode(salt), encode(key)), nil
}

func verifyPBKDF2(plaintext, storedHash string) bool {
	parts := strings.Split(strings.TrimPrefix(storedHash, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 || rounds > maxRounds {
		return false
	}
	salt, err := decode(parts[1])
	if err != nil {
		return false
	}
	expected, err := decode(parts[2])
	if err != nil || len(expected) == 0 {
		return false
	}
	computed := pbkdf2.Key([]byte(plaintext), salt, rounds, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

func encode(b []byte) string {
	return strings.ReplaceAll(b64.EncodeToString(b), "+", ".")
}

func decode(s string) ([]byte, error) {
	return b64.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
