package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDelete handles DELETE requests. Deleting an absent key is
// accepted; the operation itself ends failed.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	d, ok := h.database(w)
	if !ok {
		return
	}

	op := d.Delete(key)
	h.logger.Debugf("[api] queued delete of %q as %s", key, op.ID)
	writeAccepted(w, op)
}
