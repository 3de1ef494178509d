// Package messages holds the durable message log and the per-user inbox
// projection.
package messages

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

// LogNamespace prefixes message log entries in the shared store.
const LogNamespace = "msg" + keys.NamespaceSep

// Log is the append-only, thread-keyed message log. No update or delete
// operations exist.
type Log struct {
	store *store.Store
	// seq breaks ties between messages written within the same nanosecond
	// timestamp, keeping ids unique and ordered within a process.
	seq uint64
}

// NewLog returns a Log backed by the given store.
func NewLog(st *store.Store) *Log {
	return &Log{store: st}
}

// NextID returns a new message id. The zero-padded nanosecond timestamp
// makes ids sort lexicographically in arrival order; the sequence suffix
// disambiguates same-timestamp sends.
func (l *Log) NextID(now time.Time) string {
	s := atomic.AddUint64(&l.seq, 1)
	return fmt.Sprintf("msg#%020d-%06d", now.UTC().UnixNano(), s%1000000)
}

func logKey(threadID, msgID string) string {
	return LogNamespace + threadID + keys.NamespaceSep + msgID
}

// Append durably writes a message under its thread. The message must carry
// its Thread and ID already.
func (l *Log) Append(m models.Message) error {
	if m.Thread == "" || m.ID == "" {
		return fmt.Errorf("message missing thread or id")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := l.store.Put(logKey(m.Thread, m.ID), data); err != nil {
		logger.Error("message_append_failed", "thread", m.Thread, "id", m.ID, "error", err)
		return err
	}
	logger.Info("message_saved", "thread", m.Thread, "id", m.ID)
	return nil
}

// ListByThread returns all messages of a thread in key order, which is
// arrival order.
func (l *Log) ListByThread(threadID string) ([]models.Message, error) {
	kvs, err := l.store.ScanPrefix(LogNamespace + threadID + keys.NamespaceSep)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(kvs))
	for _, kv := range kvs {
		var m models.Message
		if err := json.Unmarshal(kv.Value, &m); err != nil {
			return nil, fmt.Errorf("invalid message record %s: %w", kv.Key, err)
		}
		out = append(out, m)
	}
	return out, nil
}
