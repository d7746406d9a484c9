package api

import (
	"net/http"
)

// HandleBackup handles POST /backup. It answers once the copy is complete.
func (h *Handler) HandleBackup(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	d, ok := h.database(w)
	if !ok {
		return
	}
	if err := d.Backup(r.Context(), path); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path, Database: d.Name()})
}

// HandleRestore handles POST /restore, replacing the active database with
// a backup
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	d, ok := h.database(w)
	if !ok {
		return
	}
	if err := d.Restore(r.Context(), path); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path, Database: d.Name()})
}
