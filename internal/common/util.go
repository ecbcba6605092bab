package common

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// MakeRandHexString returns 2*size hex characters read from crypto/rand.
// It is used for refresh tokens and the bootstrap admin password.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Used for passwords read from the
// terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// NormalizeSerial trims a serial number or search pattern. Client and server
// apply it before validating, so " A1 " and "A1" are the same serial.
func NormalizeSerial(s string) string {
	return strings.TrimSpace(s)
}
