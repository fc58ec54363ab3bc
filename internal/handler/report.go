package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-backoffice/internal/domain/report"
)

// Revenue returns order counts and revenue grouped by day or month.
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	period, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	buckets, err := h.reports.Revenue(r.Context(), period)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, b := range buckets {
			e.ObjStart()
			e.FieldStart("period")
			e.Str(b.Key)
			e.FieldStart("orders")
			e.Int(b.Orders)
			e.FieldStart("revenue")
			encodeMoney(e, b.Revenue)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}
