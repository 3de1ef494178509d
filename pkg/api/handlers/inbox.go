package handlers

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/utils"
)

// RegisterInbox registers the inbox summary route on the provided router.
func RegisterInbox(r *mux.Router, d Deps) {
	r.HandleFunc("/inbox/{user}", listInbox(d)).Methods(http.MethodGet)
}

// listInbox handles GET /inbox/{user}: one row per conversation partner,
// newest conversation first.
func listInbox(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mux.Vars(r)["user"]
		if err := keys.ValidateID(user); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries, err := d.Inbox.List(user)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].TS > entries[j].TS })
		logger.Info("inbox_list", "user", user, "count", len(entries))
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			User    string              `json:"user"`
			Entries []models.InboxEntry `json:"entries"`
		}{User: user, Entries: entries})
	}
}
