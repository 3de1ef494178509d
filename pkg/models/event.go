package models

import "fmt"

// Route discriminates inbound gateway events.
type Route string

const (
	RouteConnect     Route = "connect"
	RouteDisconnect  Route = "disconnect"
	RouteGetMessages Route = "get_messages"
	RouteSend        Route = "send"
)

// Event is the discriminated inbound event handled by the delivery router.
// Any route other than connect/disconnect/get_messages is handled as a send;
// that fallback is part of the wire contract.
type Event struct {
	Route  Route  `json:"route,omitempty"`
	ConnID string `json:"connection_id,omitempty"`
	User   string `json:"user,omitempty"`

	// send fields
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Message string `json:"message,omitempty"`

	// get_messages fields
	OtherUser string `json:"other_user,omitempty"`
}

// Validate checks the fields required by the event's route and fails fast
// with a descriptive error instead of letting a handler trip over a missing
// field later.
func (e Event) Validate() error {
	switch e.Route {
	case RouteConnect:
		if e.ConnID == "" {
			return fmt.Errorf("connect event missing connection_id")
		}
		if e.User == "" {
			return fmt.Errorf("connect event missing user")
		}
	case RouteDisconnect:
		if e.ConnID == "" {
			return fmt.Errorf("disconnect event missing connection_id")
		}
	case RouteGetMessages:
		if e.User == "" {
			return fmt.Errorf("get_messages event missing user")
		}
		if e.OtherUser == "" {
			return fmt.Errorf("get_messages event missing other_user")
		}
	default:
		// send, or any unrecognized route handled as send
		if e.From == "" {
			return fmt.Errorf("send event missing from")
		}
		if e.To == "" {
			return fmt.Errorf("send event missing to")
		}
		if e.Message == "" {
			return fmt.Errorf("send event missing message")
		}
	}
	return nil
}
