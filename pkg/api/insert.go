package api

import (
	"io"
	"net/http"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleInsert handles PUT requests storing a document under a key. The
// body is the document's field object. The write is queued and answered
// with 202 Accepted.
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	d, ok := h.database(w)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fields, err := domain.ParseFields(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	op := d.Insert(key, fields)
	h.logger.Debugf("[api] queued insert of %q as %s", key, op.ID)
	writeAccepted(w, op)
}
