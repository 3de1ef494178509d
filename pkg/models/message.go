package models

// Message is one immutable entry in a thread's log. Messages are append
// only; there is no update or delete surface.
type Message struct {
	ID       string `json:"id"`
	Thread   string `json:"thread"`
	Sender   string `json:"sender_id"`
	Receiver string `json:"receiver_id"`
	Content  string `json:"content"`
	// TS is the server-side send timestamp (ns).
	TS int64 `json:"ts"`
}
