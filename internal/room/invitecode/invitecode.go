// Package invitecode generates the short join codes printed on invites.
package invitecode

import (
	"crypto/rand"
	"strings"
)

// Codes are uppercase and skip 0/O/1/I so people can read them aloud and
// type them back without ambiguity.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const Length = 6

// New returns a fresh random code.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Normalize uppercases and trims a user-typed code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
