package messages

import (
	"encoding/json"
	"fmt"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

// InboxNamespace prefixes inbox rows in the shared store.
const InboxNamespace = "inbox" + keys.NamespaceSep

// Inbox maintains the latest-message-per-thread summary for each user. Rows
// are freely overwritten; this is a materialized view, not a log.
type Inbox struct {
	store *store.Store
}

// NewInbox returns an Inbox backed by the given store.
func NewInbox(st *store.Store) *Inbox {
	return &Inbox{store: st}
}

func inboxKey(owner, threadID string) string {
	return InboxNamespace + owner + keys.NamespaceSep + threadID
}

// Upsert overwrites the single inbox row for (owner, thread) with the new
// preview and timestamp.
func (ib *Inbox) Upsert(owner, otherUser, threadID, preview string, ts int64) error {
	e := models.InboxEntry{
		Owner:       owner,
		Thread:      threadID,
		OtherUser:   otherUser,
		LastMessage: preview,
		TS:          ts,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal inbox entry: %w", err)
	}
	if err := ib.store.Put(inboxKey(owner, threadID), data); err != nil {
		logger.Error("inbox_upsert_failed", "owner", owner, "thread", threadID, "error", err)
		return err
	}
	return nil
}

// List returns all inbox rows for a user in thread-key order.
func (ib *Inbox) List(owner string) ([]models.InboxEntry, error) {
	kvs, err := ib.store.ScanPrefix(InboxNamespace + owner + keys.NamespaceSep)
	if err != nil {
		return nil, err
	}
	out := make([]models.InboxEntry, 0, len(kvs))
	for _, kv := range kvs {
		var e models.InboxEntry
		if err := json.Unmarshal(kv.Value, &e); err != nil {
			return nil, fmt.Errorf("invalid inbox record %s: %w", kv.Key, err)
		}
		out = append(out, e)
	}
	return out, nil
}
