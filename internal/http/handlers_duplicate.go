package http

import (
	"fmt"
	"net/http"
)

type duplicateRequest struct {
	SourceMonth *int `json:"sourceMonth"`
	SourceYear  *int `json:"sourceYear"`
}

type duplicateResponse struct {
	Message         string            `json:"message"`
	DuplicatedCount int               `json:"duplicatedCount"`
	Duplicated      []expenseResponse `json:"duplicated"`
}

// handleDuplicateExpenses copies the in-progress installments of the
// given month into the following month. Missing body fields are a 400;
// a sweep that finds nothing to copy is a 200 with count zero.
func (s *Server) handleDuplicateExpenses(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SourceMonth == nil || req.SourceYear == nil {
		writeError(w, http.StatusBadRequest, "sourceMonth and sourceYear are required")
		return
	}

	result, err := s.duplicator.Duplicate(r.Context(), *req.SourceMonth, *req.SourceYear)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := duplicateResponse{
		Message:         fmt.Sprintf("%d installments duplicated from %s into %s", result.Count(), result.Source, result.Target),
		DuplicatedCount: result.Count(),
		Duplicated:      toExpenseResponses(result.Created),
	}

	status := http.StatusCreated
	if result.Count() == 0 {
		status = http.StatusOK
		resp.Message = fmt.Sprintf("no installments to duplicate in %s", result.Source)
	}
	writeJSON(w, status, resp)
}
