package models

// InboxEntry is the materialized latest-message view for one (owner, thread)
// pair. It is overwritten on every new message in the thread; it is a
// summary, not a log.
type InboxEntry struct {
	Owner       string `json:"owner"`
	Thread      string `json:"thread"`
	OtherUser   string `json:"other_user_id"`
	LastMessage string `json:"last_message"`
	TS          int64  `json:"ts"`
}
