// Package ident converts between UUID strings and the 16-byte identifiers
// stored by the cap table program.
package ident

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformedIdentifier is returned when a UUID string is not 32 hex digits
// once hyphens are removed.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// BinaryID is the on-ledger form of a UUID. Bytes follow the canonical hex
// digit order of the UUID.
type BinaryID [16]byte

// ToBinaryID strips hyphens from s and decodes the remaining 32 hex digits.
// Input is case-insensitive.
func ToBinaryID(s string) (BinaryID, error) {
	digits := strings.ReplaceAll(s, "-", "")
	if len(digits) != 32 {
		return BinaryID{}, fmt.Errorf("%w: %q has %d hex digits, want 32", ErrMalformedIdentifier, s, len(digits))
	}

	var id BinaryID
	_, err := hex.Decode(id[:], []byte(digits))
	if err != nil {
		return BinaryID{}, fmt.Errorf("%w: %q: %v", ErrMalformedIdentifier, s, err)
	}

	return id, nil
}

// MustBinaryID is like ToBinaryID but panics on malformed input.
func MustBinaryID(s string) BinaryID {
	id, err := ToBinaryID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ToUUID renders id as a lower-case hyphenated UUID string.
func ToUUID(id BinaryID) string {
	return uuid.UUID(id).String()
}

// String implements fmt.Stringer.
func (id BinaryID) String() string {
	return ToUUID(id)
}

// Canonical returns the lower-case hyphenated form of s.
func Canonical(s string) (string, error) {
	id, err := ToBinaryID(s)
	if err != nil {
		return "", err
	}
	return ToUUID(id), nil
}

// New returns a random (version 4) identifier.
func New() BinaryID {
	return BinaryID(uuid.New())
}
