package api

import (
	"net/http"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/query"
)

// HandleAggregate handles GET /aggregate?field=f&op=sum|count|avg with an
// optional where_field and where_value equality filter.
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	field := params.Get("field")
	if field == "" {
		WriteJSONError(w, http.StatusBadRequest, "field is required")
		return
	}
	op, err := query.ParseOp(params.Get("op"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var pred query.Predicate
	if whereField := params.Get("where_field"); whereField != "" {
		value, err := domain.ParseValue(params.Get("where_value"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		pred = query.Where(whereField, value)
	}

	d, ok := h.database(w)
	if !ok {
		return
	}
	res, err := d.Aggregate(field, op, pred)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
