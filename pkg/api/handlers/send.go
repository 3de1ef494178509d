package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/models"
	"chatrelay/pkg/utils"
)

// RegisterSend registers the backend send route on the provided router.
func RegisterSend(r *mux.Router, d Deps) {
	r.HandleFunc("/messages", sendMessage(d)).Methods(http.MethodPost)
}

type sendRequest struct {
	Sender   string `json:"sender_id"`
	Receiver string `json:"receiver_id"`
	Content  string `json:"content"`
}

// sendMessage handles POST /messages. It runs the same store-then-deliver
// path as a socket send, so backend callers get identical semantics: the
// message is persisted first and a live recipient gets one push attempt.
func sendMessage(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		res := d.Router.HandleEvent(r.Context(), models.Event{
			Route:   models.RouteSend,
			From:    req.Sender,
			To:      req.Receiver,
			Message: req.Content,
		})
		_ = utils.JSONWrite(w, res.Status, res)
	}
}
