package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGet handles GET requests to retrieve a document by key
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	d, ok := h.database(w)
	if !ok {
		return
	}

	doc, err := d.Get(key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
