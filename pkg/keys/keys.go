// Package keys defines the composite key formats shared by the presence
// directory and the message stores. Keys are built from typed structs and
// serialized to the delimited string form only at the storage boundary.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

// Delim separates key segments. Identifiers (user ids, connection ids) must
// not contain it; ValidateID enforces this at the boundary so stored keys
// always decode back to the identifiers they were built from.
const Delim = "#"

// NamespaceSep joins the storage namespaces (conn, msg, inbox) to the keys
// beneath them. It is reserved alongside Delim: an identifier carrying it
// would extend its own segment into the next one, so a prefix scan for one
// thread or owner would also cover keys of another.
const NamespaceSep = ":"

// ErrMalformedKey reports a stored key that does not match the expected
// five-segment composite format.
var ErrMalformedKey = errors.New("malformed composite key")

// ConnKey is the forward presence record key: one per live connection,
// scannable by connection id.
type ConnKey struct {
	ConnID string
	UserID string
}

// Encode renders the key as "#conn#{connID}#user#{userID}".
func (k ConnKey) Encode() string {
	return Delim + "conn" + Delim + k.ConnID + Delim + "user" + Delim + k.UserID
}

// UserKey is the reverse presence record key, the mirror of ConnKey,
// scannable by user id.
type UserKey struct {
	UserID string
	ConnID string
}

// Encode renders the key as "#user#{userID}#conn#{connID}".
func (k UserKey) Encode() string {
	return Delim + "user" + Delim + k.UserID + Delim + "conn" + Delim + k.ConnID
}

// DecodeConnKey parses a forward record key. The identifiers sit at segment
// positions 2 and 4 after splitting on the delimiter.
func DecodeConnKey(s string) (ConnKey, error) {
	parts := strings.Split(s, Delim)
	if len(parts) < 5 {
		return ConnKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	return ConnKey{ConnID: parts[2], UserID: parts[4]}, nil
}

// DecodeUserKey parses a reverse record key.
func DecodeUserKey(s string) (UserKey, error) {
	parts := strings.Split(s, Delim)
	if len(parts) < 5 {
		return UserKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	return UserKey{UserID: parts[2], ConnID: parts[4]}, nil
}

// ConnPrefix returns the scan prefix covering every forward record for a
// connection id.
func ConnPrefix(connID string) string {
	return Delim + "conn" + Delim + connID + Delim
}

// UserPrefix returns the scan prefix covering every reverse record for a
// user id.
func UserPrefix(userID string) string {
	return Delim + "user" + Delim + userID + Delim
}

// ValidateID rejects identifiers that are empty or contain a reserved
// character (the key delimiter or the namespace separator). Callers must run
// every externally supplied user and connection id through this before it
// reaches a key.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, reserved := range []string{Delim, NamespaceSep} {
		if strings.Contains(id, reserved) {
			return fmt.Errorf("identifier %q contains reserved character %q", id, reserved)
		}
	}
	return nil
}

// ThreadID derives the canonical thread identifier for a pair of users.
// The smaller identifier sorts first, so both participants compute the same
// thread regardless of who sends.
func ThreadID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "thread" + Delim + a + Delim + b
}
