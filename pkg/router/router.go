// Package router orchestrates connect, disconnect and send events over the
// presence directory and the message stores. Every handler is synchronous:
// it persists state, optionally attempts one push delivery, and returns a
// status/body result. The router keeps no state of its own and performs no
// queuing or retries.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/messages"
	"chatrelay/pkg/models"
	"chatrelay/pkg/presence"
)

// Pusher attempts best-effort delivery of a payload to a live connection.
// Implementations return an error when the connection is gone or the write
// fails; the router logs and swallows such errors.
type Pusher interface {
	Push(ctx context.Context, connID string, payload []byte) error
}

// Result is the status/body pair every handler resolves to. Only 200 and
// 500 are produced.
type Result struct {
	Status int    `json:"statusCode"`
	Body   string `json:"body"`
}

func ok(body string) Result   { return Result{Status: 200, Body: body} }
func fail(body string) Result { return Result{Status: 500, Body: body} }

// Router wires the persistence components and the push collaborator. All
// dependencies are injected at construction; there are no package globals.
type Router struct {
	presence *presence.Directory
	log      *messages.Log
	inbox    *messages.Inbox
	pusher   Pusher
	now      func() time.Time
}

// New constructs a Router. pusher may be nil, in which case delivery is
// always skipped (pure store-and-forward).
func New(dir *presence.Directory, log *messages.Log, inbox *messages.Inbox, pusher Pusher) *Router {
	return &Router{presence: dir, log: log, inbox: inbox, pusher: pusher, now: time.Now}
}

// HandleEvent validates the event and dispatches on its route. Unrecognized
// routes fall through to the send handler; that fallback is part of the
// observable contract.
func (rt *Router) HandleEvent(ctx context.Context, ev models.Event) Result {
	if err := ev.Validate(); err != nil {
		logger.Warn("event_rejected", "route", string(ev.Route), "error", err)
		return fail(fmt.Sprintf("invalid event: %v", err))
	}
	switch ev.Route {
	case models.RouteConnect:
		return rt.OnConnect(ctx, ev.ConnID, ev.User)
	case models.RouteDisconnect:
		return rt.OnDisconnect(ctx, ev.ConnID)
	case models.RouteGetMessages:
		return rt.GetMessages(ctx, ev.User, ev.OtherUser)
	default:
		return rt.OnMessage(ctx, ev.From, ev.To, ev.Message)
	}
}

// OnConnect registers the connection in the presence directory.
func (rt *Router) OnConnect(_ context.Context, connID, userID string) Result {
	if err := rt.presence.Connect(connID, userID); err != nil {
		return fail(fmt.Sprintf("error inserting connection record: %v", err))
	}
	return ok("connection registered")
}

// OnDisconnect tears down every record for the connection. A disconnect
// that matches nothing is a success, not an error.
func (rt *Router) OnDisconnect(_ context.Context, connID string) Result {
	n, err := rt.presence.Disconnect(connID)
	if err != nil {
		return fail(fmt.Sprintf("error deleting connection records: %v", err))
	}
	if n == 0 {
		logger.Debug("disconnect_noop", "conn", connID)
	}
	return ok("connection records removed")
}

// OnMessage persists a message and its inbox projections, then attempts one
// push to the recipient's first live connection. The write happens before
// the delivery attempt so persistence never depends on the recipient being
// online, and a failed push never rolls the writes back or fails the send.
func (rt *Router) OnMessage(ctx context.Context, from, to, content string) Result {
	if err := keys.ValidateID(from); err != nil {
		return fail(fmt.Sprintf("invalid sender: %v", err))
	}
	if err := keys.ValidateID(to); err != nil {
		return fail(fmt.Sprintf("invalid recipient: %v", err))
	}
	now := rt.now()
	m := models.Message{
		ID:       rt.log.NextID(now),
		Thread:   keys.ThreadID(from, to),
		Sender:   from,
		Receiver: to,
		Content:  content,
		TS:       now.UTC().UnixNano(),
	}
	if err := rt.log.Append(m); err != nil {
		return fail(fmt.Sprintf("error storing message: %v", err))
	}
	if err := rt.inbox.Upsert(from, to, m.Thread, content, m.TS); err != nil {
		return fail(fmt.Sprintf("error updating sender inbox: %v", err))
	}
	if err := rt.inbox.Upsert(to, from, m.Thread, content, m.TS); err != nil {
		return fail(fmt.Sprintf("error updating recipient inbox: %v", err))
	}

	conns, err := rt.presence.LiveConnections(to)
	if err != nil {
		return fail(fmt.Sprintf("error resolving recipient connections: %v", err))
	}
	if len(conns) == 0 || rt.pusher == nil {
		// offline recipient: the message is stored and will surface via the
		// inbox and thread history on next connect
		logger.Info("recipient_offline", "to", to, "thread", m.Thread)
		return ok("message stored")
	}
	// single-device policy: deliver to the first live connection only
	target := conns[0]
	payload, _ := json.Marshal(m)
	if err := rt.pusher.Push(ctx, target, payload); err != nil {
		deliveryFailures.Inc()
		logger.Error("push_delivery_failed", "conn", target, "to", to, "error", err)
		return ok("message stored")
	}
	deliveries.Inc()
	logger.Info("message_delivered", "conn", target, "to", to, "thread", m.Thread)
	return ok(fmt.Sprintf("message sent to connection: %s", target))
}

// GetMessages returns the full history of the thread between two users as a
// JSON array, in arrival order.
func (rt *Router) GetMessages(_ context.Context, userID, otherUserID string) Result {
	if err := keys.ValidateID(userID); err != nil {
		return fail(fmt.Sprintf("invalid user: %v", err))
	}
	if err := keys.ValidateID(otherUserID); err != nil {
		return fail(fmt.Sprintf("invalid user: %v", err))
	}
	msgs, err := rt.log.ListByThread(keys.ThreadID(userID, otherUserID))
	if err != nil {
		return fail(fmt.Sprintf("error retrieving messages: %v", err))
	}
	body, err := json.Marshal(msgs)
	if err != nil {
		return fail(fmt.Sprintf("error encoding messages: %v", err))
	}
	return ok(string(body))
}

// IsMalformedKey reports whether an error chain contains a malformed stored
// key. Exposed for callers that want to distinguish corruption from plain
// storage faults.
func IsMalformedKey(err error) bool {
	return errors.Is(err, keys.ErrMalformedKey)
}
