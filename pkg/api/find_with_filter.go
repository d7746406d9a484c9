package api

import (
	"net/http"
	"strconv"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// DocumentsResponse wraps query results
type DocumentsResponse struct {
	Count     int                `json:"count"`
	Documents []*domain.Document `json:"documents"`
}

func writeDocuments(w http.ResponseWriter, docs []*domain.Document) {
	if docs == nil {
		docs = []*domain.Document{}
	}
	writeJSON(w, http.StatusOK, DocumentsResponse{Count: len(docs), Documents: docs})
}

// HandleQuery handles GET /query?field=f&value=v. The value is a JSON
// literal, so strings are quoted: value="John Doe".
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	field := params.Get("field")
	if field == "" || !params.Has("value") {
		WriteJSONError(w, http.StatusBadRequest, "field and value are required")
		return
	}
	value, err := domain.ParseValue(params.Get("value"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, ok := h.database(w)
	if !ok {
		return
	}

	docs, err := d.QueryEqual(field, value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDocuments(w, docs)
}

// HandleRange handles GET /range?field=f&low=l&high=h
func (h *Handler) HandleRange(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	field := params.Get("field")
	low, lerr := strconv.ParseFloat(params.Get("low"), 64)
	high, herr := strconv.ParseFloat(params.Get("high"), 64)
	if field == "" || lerr != nil || herr != nil {
		WriteJSONError(w, http.StatusBadRequest, "field, low and high are required and low/high must be numbers")
		return
	}
	d, ok := h.database(w)
	if !ok {
		return
	}

	docs, err := d.QueryRange(field, low, high)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDocuments(w, docs)
}

// HandleSearch handles GET /search?q=text
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		WriteJSONError(w, http.StatusBadRequest, "q is required")
		return
	}
	d, ok := h.database(w)
	if !ok {
		return
	}

	docs, err := d.Search(text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDocuments(w, docs)
}
