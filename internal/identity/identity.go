// Package identity defines the 32-byte public identity used throughout the
// academy registry. An identity names a certificate recipient or the issuer
// authority; it is rendered as 64 hex characters on the wire.
package identity

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Size is the length of an identity in bytes.
const Size = 32

// Identity is a 32-byte public identity.
type Identity [Size]byte

// Parse decodes a 64-character hex string into an Identity.
func Parse(s string) (Identity, error) {
	var id Identity
	if len(s) != Size*2 {
		return id, fmt.Errorf("invalid identity length: got %d characters, want %d", len(s), Size*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid identity encoding: %w", err)
	}
	copy(id[:], b)
	return id, nil
}

// FromBytes builds an Identity from a raw 32-byte slice.
func FromBytes(b []byte) (Identity, error) {
	var id Identity
	if len(b) != Size {
		return id, fmt.Errorf("invalid identity length: got %d bytes, want %d", len(b), Size)
	}
	copy(id[:], b)
	return id, nil
}

// Random generates a new random identity.
func Random() (Identity, error) {
	var id Identity
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("failed to generate identity: %w", err)
	}
	return id, nil
}

// String returns the hex representation of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the identity as a byte slice.
func (id Identity) Bytes() []byte {
	return id[:]
}

// IsZero reports whether the identity is all zero bytes.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Equal reports whether two identities are the same.
func (id Identity) Equal(other Identity) bool {
	return bytes.Equal(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
