package api

import (
	"net/http"
	"strconv"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// HandleList handles GET /documents, returning one page of keys. The
// after parameter takes the next_cursor of the previous page.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	d, ok := h.database(w)
	if !ok {
		return
	}

	opts := domain.DefaultPaginationOptions()
	params := r.URL.Query()
	opts.After = params.Get("after")
	if limit := params.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		opts.Limit = n
	}

	page, err := d.ListPage(opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
