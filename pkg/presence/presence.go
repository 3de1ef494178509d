// Package presence maintains the bidirectional mapping between transient
// connection ids and user identities. For every live connection exactly one
// forward and one reverse record exist; the pair is created and destroyed
// together. Records carry no payload — identity lives in the key itself.
package presence

import (
	"fmt"
	"strings"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/store"
)

// Namespace prefixes connection records in the shared store.
const Namespace = "conn" + keys.NamespaceSep

// Directory is the connection-presence index. It is the only writer of
// connection records.
type Directory struct {
	store *store.Store
}

// New returns a Directory backed by the given store.
func New(st *store.Store) *Directory {
	return &Directory{store: st}
}

// Connect registers a live connection for a user by writing the forward and
// reverse records. Re-registering the same pair overwrites identically.
// Registering the same connection id under a different user is last-write-
// wins for the forward record; the behavior is undefined and deliberately
// not repaired here.
func (d *Directory) Connect(connID, userID string) error {
	if err := keys.ValidateID(connID); err != nil {
		return fmt.Errorf("connection id: %w", err)
	}
	if err := keys.ValidateID(userID); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	fwd := Namespace + keys.ConnKey{ConnID: connID, UserID: userID}.Encode()
	rev := Namespace + keys.UserKey{UserID: userID, ConnID: connID}.Encode()
	if err := d.store.Put(fwd, nil); err != nil {
		return err
	}
	if err := d.store.Put(rev, nil); err != nil {
		return err
	}
	logger.Info("connection_established", "user", userID, "conn", connID)
	return nil
}

// Disconnect removes every record for the connection id: each forward record
// under the connection prefix plus the reverse record reconstructed from the
// user embedded in it. Zero matches is a no-op, not an error. A stored key
// that fails to decode propagates keys.ErrMalformedKey.
func (d *Directory) Disconnect(connID string) (int, error) {
	if err := keys.ValidateID(connID); err != nil {
		return 0, fmt.Errorf("connection id: %w", err)
	}
	matches, err := d.store.ScanKeys(Namespace + keys.ConnPrefix(connID))
	if err != nil {
		return 0, err
	}
	for _, k := range matches {
		ck, err := keys.DecodeConnKey(strings.TrimPrefix(k, Namespace))
		if err != nil {
			return 0, err
		}
		if err := d.store.Delete(k); err != nil {
			return 0, err
		}
		rev := Namespace + keys.UserKey{UserID: ck.UserID, ConnID: ck.ConnID}.Encode()
		if err := d.store.Delete(rev); err != nil {
			return 0, err
		}
		logger.Info("connection_removed", "user", ck.UserID, "conn", connID)
	}
	return len(matches), nil
}

// Sweep removes half-orphaned records, i.e. forward records whose reverse
// counterpart is missing and reverse records whose forward counterpart is
// missing. A crash between the two writes of Connect, or between the two
// deletes of Disconnect, leaves such strays behind. Malformed keys are
// logged and skipped. Returns the number of records deleted.
func (d *Directory) Sweep() (int, error) {
	all, err := d.store.ScanKeys(Namespace)
	if err != nil {
		return 0, err
	}
	fwd := make(map[string]keys.ConnKey)
	rev := make(map[string]keys.UserKey)
	for _, k := range all {
		rest := strings.TrimPrefix(k, Namespace)
		switch {
		case strings.HasPrefix(rest, keys.Delim+"conn"+keys.Delim):
			ck, err := keys.DecodeConnKey(rest)
			if err != nil {
				logger.Warn("sweep_malformed_key", "key", k, "error", err)
				continue
			}
			fwd[k] = ck
		case strings.HasPrefix(rest, keys.Delim+"user"+keys.Delim):
			uk, err := keys.DecodeUserKey(rest)
			if err != nil {
				logger.Warn("sweep_malformed_key", "key", k, "error", err)
				continue
			}
			rev[k] = uk
		default:
			logger.Warn("sweep_malformed_key", "key", k)
		}
	}

	removed := 0
	for k, ck := range fwd {
		counterpart := Namespace + keys.UserKey{UserID: ck.UserID, ConnID: ck.ConnID}.Encode()
		if _, ok := rev[counterpart]; ok {
			continue
		}
		if err := d.store.Delete(k); err != nil {
			return removed, err
		}
		logger.Info("sweep_removed_orphan", "key", k)
		removed++
	}
	for k, uk := range rev {
		counterpart := Namespace + keys.ConnKey{ConnID: uk.ConnID, UserID: uk.UserID}.Encode()
		if _, ok := fwd[counterpart]; ok {
			continue
		}
		if err := d.store.Delete(k); err != nil {
			return removed, err
		}
		logger.Info("sweep_removed_orphan", "key", k)
		removed++
	}
	return removed, nil
}

// LiveConnections returns the connection ids currently registered for a
// user, in storage iteration order. The order carries no priority meaning.
func (d *Directory) LiveConnections(userID string) ([]string, error) {
	if err := keys.ValidateID(userID); err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	matches, err := d.store.ScanKeys(Namespace + keys.UserPrefix(userID))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range matches {
		uk, err := keys.DecodeUserKey(strings.TrimPrefix(k, Namespace))
		if err != nil {
			return nil, err
		}
		out = append(out, uk.ConnID)
	}
	return out, nil
}
