package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/utils"
)

// RegisterPresence registers the presence lookup route on the provided
// router.
func RegisterPresence(r *mux.Router, d Deps) {
	r.HandleFunc("/presence/{user}", getPresence(d)).Methods(http.MethodGet)
}

// getPresence handles GET /presence/{user}: whether the user has any live
// connection, and which connection ids.
func getPresence(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mux.Vars(r)["user"]
		if err := keys.ValidateID(user); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		conns, err := d.Presence.LiveConnections(user)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			User        string   `json:"user"`
			Online      bool     `json:"online"`
			Connections []string `json:"connections"`
		}{User: user, Online: len(conns) > 0, Connections: conns})
	}
}
