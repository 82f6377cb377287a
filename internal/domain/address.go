package domain

import (
	"bytes"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the number of bytes in an overlay address (160 bits)
const AddressLength = 20

// AddressPrefix precedes the base32 form of every node address
const AddressPrefix = "brunet:node:"

// encodedLength is the base32 length of AddressLength bytes (no padding)
const encodedLength = 32

// ErrInvalidAddress is returned when a string is not a node address
var ErrInvalidAddress = errors.New("invalid node address")

// Address is a node identifier on the ring. The zero value is unset: it never
// equals a set address and is never matched by consistency checks.
type Address struct {
	raw [AddressLength]byte
	set bool
}

// ParseAddress parses the "brunet:node:<base32>" text form. Characters past
// the 32 base32 characters are ignored, as the overlay may append a suffix.
func ParseAddress(s string) (Address, error) {
	if !strings.HasPrefix(s, AddressPrefix) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	enc := s[len(AddressPrefix):]
	if len(enc) < encodedLength {
		return Address{}, fmt.Errorf("%w: %q is too short", ErrInvalidAddress, s)
	}

	var a Address
	n, err := base32.StdEncoding.Decode(a.raw[:], []byte(enc[:encodedLength]))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if n != AddressLength {
		return Address{}, fmt.Errorf("%w: decoded %d bytes", ErrInvalidAddress, n)
	}
	a.set = true
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes builds an address from its big-endian byte form
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidAddress, AddressLength, len(b))
	}
	var a Address
	copy(a.raw[:], b)
	a.set = true
	return a, nil
}

// IsSet reports whether the address holds a value
func (a Address) IsSet() bool {
	return a.set
}

// Bytes returns a copy of the big-endian byte form
func (a Address) Bytes() []byte {
	if !a.set {
		return nil
	}
	out := make([]byte, AddressLength)
	copy(out, a.raw[:])
	return out
}

// String returns the text form, or "" for an unset address
func (a Address) String() string {
	if !a.set {
		return ""
	}
	return AddressPrefix + base32.StdEncoding.EncodeToString(a.raw[:])
}

// Short returns an abbreviated form for log lines
func (a Address) Short() string {
	s := a.String()
	if len(s) <= len(AddressPrefix)+8 {
		return s
	}
	return s[len(AddressPrefix) : len(AddressPrefix)+8]
}

// Compare orders addresses as unsigned integers. Unset sorts before set.
func (a Address) Compare(b Address) int {
	switch {
	case !a.set && !b.set:
		return 0
	case !a.set:
		return -1
	case !b.set:
		return 1
	}
	return bytes.Compare(a.raw[:], b.raw[:])
}

// Less reports a < b
func (a Address) Less(b Address) bool {
	return a.Compare(b) < 0
}

// LessOrEqual reports a <= b
func (a Address) LessOrEqual(b Address) bool {
	return a.Compare(b) <= 0
}

// Greater reports a > b
func (a Address) Greater(b Address) bool {
	return a.Compare(b) > 0
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string yields
// the unset address.
func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
