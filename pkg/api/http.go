// Package api exposes the read-side HTTP surface: thread history, inbox
// summaries and presence lookups, plus a backend send endpoint that feeds
// the same delivery path as the WebSocket gateway.
package api

import (
	"github.com/gorilla/mux"

	"chatrelay/pkg/api/handlers"
)

// Deps re-exports the handler dependency bundle for callers wiring the API.
type Deps = handlers.Deps

// Register mounts all /v1 routes on the given subrouter.
func Register(r *mux.Router, d Deps) {
	handlers.RegisterThreads(r, d)
	handlers.RegisterInbox(r, d)
	handlers.RegisterPresence(r, d)
	handlers.RegisterSend(r, d)
}
