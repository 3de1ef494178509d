// Package handlers implements the /v1 HTTP endpoints.
package handlers

import (
	"chatrelay/pkg/messages"
	"chatrelay/pkg/presence"
	"chatrelay/pkg/router"
)

// Deps carries the service components the handlers operate on. Everything
// is injected; the package keeps no globals.
type Deps struct {
	Router   *router.Router
	Log      *messages.Log
	Inbox    *messages.Inbox
	Presence *presence.Directory
}
