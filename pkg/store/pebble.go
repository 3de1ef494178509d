package store

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/pebble"

	"chatrelay/pkg/logger"
)

// Store wraps a Pebble database behind the small key-value surface the rest
// of the system needs: synced point writes and deletes plus ordered prefix
// scans. It is constructed once and injected into the components that use
// it; there is no package-global handle.
type Store struct {
	db   *pebble.DB
	path string
}

// KV is one key/value pair returned by a prefix scan, in storage key order.
type KV struct {
	Key   string
	Value []byte
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed", "path", s.path)
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool { return s != nil && s.db != nil }

// Path returns the database directory.
func (s *Store) Path() string { return s.path }

// Put writes a single key synced to disk. Per-key writes are atomic; no
// multi-key transaction is offered or used.
func (s *Store) Put(key string, value []byte) error {
	if !s.Ready() {
		return fmt.Errorf("store not opened")
	}
	if err := s.db.Set([]byte(key), value, pebble.Sync); err != nil {
		opErrors.WithLabelValues("put").Inc()
		logger.Error("store_put_failed", "key", key, "error", err)
		return fmt.Errorf("storage put %s: %w", key, err)
	}
	ops.WithLabelValues("put").Inc()
	return nil
}

// Get returns the value for key; the second return is false when the key is
// absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if !s.Ready() {
		return nil, false, fmt.Errorf("store not opened")
	}
	v, closer, err := s.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		opErrors.WithLabelValues("get").Inc()
		return nil, false, fmt.Errorf("storage get %s: %w", key, err)
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	ops.WithLabelValues("get").Inc()
	return out, true, nil
}

// Delete removes a key synced to disk. Deleting an absent key is not an
// error.
func (s *Store) Delete(key string) error {
	if !s.Ready() {
		return fmt.Errorf("store not opened")
	}
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		opErrors.WithLabelValues("delete").Inc()
		logger.Error("store_delete_failed", "key", key, "error", err)
		return fmt.Errorf("storage delete %s: %w", key, err)
	}
	ops.WithLabelValues("delete").Inc()
	return nil
}

// ScanPrefix returns every key/value whose key starts with prefix, in
// storage key order (bytewise lexicographic).
func (s *Store) ScanPrefix(prefix string) ([]KV, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("store not opened")
	}
	pfx := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage iter: %w", err)
	}
	defer iter.Close()
	var out []KV
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		v := append([]byte(nil), iter.Value()...)
		out = append(out, KV{Key: string(k), Value: v})
	}
	ops.WithLabelValues("scan").Inc()
	if err := iter.Error(); err != nil {
		opErrors.WithLabelValues("scan").Inc()
		return nil, fmt.Errorf("storage scan %s: %w", prefix, err)
	}
	return out, nil
}

// ScanKeys returns only the keys under prefix, in storage key order.
func (s *Store) ScanKeys(prefix string) ([]string, error) {
	kvs, err := s.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		out = append(out, kv.Key)
	}
	return out, nil
}
