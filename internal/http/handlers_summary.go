package http

import (
	"net/http"
	"strconv"
	"strings"

	"presupuesto/internal/core"
	"presupuesto/internal/report"
)

// handleSummary serves the monthly aggregate view. month and year are
// required query parameters; category and payment_method narrow the
// snapshot without touching the facet lists.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	month, err := strconv.Atoi(strings.TrimSpace(q.Get("month")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month query parameter is required")
		return
	}
	year, err := strconv.Atoi(strings.TrimSpace(q.Get("year")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year query parameter is required")
		return
	}

	filters := report.Filters{
		Category:      strings.TrimSpace(q.Get("category")),
		PaymentMethod: strings.TrimSpace(q.Get("payment_method")),
	}

	summary, err := s.budget.Summary(r.Context(), core.NewPeriod(month, year), filters)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
