package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/utils"
)

// RegisterThreads registers the thread history routes on the provided router.
func RegisterThreads(r *mux.Router, d Deps) {
	r.HandleFunc("/threads/{user}/{other}/messages", listThreadMessages(d)).Methods(http.MethodGet)
}

// listThreadMessages handles GET /threads/{user}/{other}/messages. The two
// path segments identify the participants in either order; the response is
// the full history of their thread in arrival order. Optional query
// parameter "limit" keeps only the newest n messages.
func listThreadMessages(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		user, other := vars["user"], vars["other"]
		if err := keys.ValidateID(user); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := keys.ValidateID(other); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		threadID := keys.ThreadID(user, other)
		msgs, err := d.Log.ListByThread(threadID)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if limStr := r.URL.Query().Get("limit"); limStr != "" {
			if lim, err := strconv.Atoi(limStr); err == nil && lim >= 0 && lim < len(msgs) {
				msgs = msgs[len(msgs)-lim:]
			}
		}
		logger.Info("thread_history_list", "thread", threadID, "count", len(msgs))
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			Thread   string           `json:"thread"`
			Messages []models.Message `json:"messages"`
		}{Thread: threadID, Messages: msgs})
	}
}
