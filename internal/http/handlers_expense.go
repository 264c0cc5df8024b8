package http

import (
	"net/http"
	"strconv"
	"time"

	"presupuesto/internal/core"
)

type expenseRequest struct {
	Description      string     `json:"description"`
	Amount           core.Money `json:"amount"`
	Category         string     `json:"category"`
	PaymentMethod    string     `json:"payment_method"`
	Month            int        `json:"month"`
	Year             int        `json:"year"`
	InstallmentIndex int        `json:"installment_index"`
	InstallmentCount int        `json:"installment_count"`
	IsRecurring      bool       `json:"is_recurring"`
}

// toDraft builds the domain draft. Omitted installment fields mean a
// plain one-off purchase; an omitted index with a count means the first
// installment.
func (req expenseRequest) toDraft() core.ExpenseDraft {
	index := req.InstallmentIndex
	count := req.InstallmentCount
	if count == 0 {
		count = 1
	}
	if index == 0 {
		index = 1
	}
	return core.ExpenseDraft{
		Description:   req.Description,
		Amount:        req.Amount,
		Category:      req.Category,
		PaymentMethod: core.PaymentMethod(req.PaymentMethod),
		Period:        core.NewPeriod(req.Month, req.Year),
		Recurrence:    core.RecurrenceFromColumns(index, count, req.IsRecurring),
	}
}

type expenseResponse struct {
	ID               int64      `json:"id"`
	Description      string     `json:"description"`
	Amount           core.Money `json:"amount"`
	Category         string     `json:"category"`
	PaymentMethod    string     `json:"payment_method"`
	Month            int        `json:"month"`
	Year             int        `json:"year"`
	InstallmentIndex int        `json:"installment_index"`
	InstallmentCount int        `json:"installment_count"`
	IsRecurring      bool       `json:"is_recurring"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:               e.ID,
		Description:      e.Description,
		Amount:           e.Amount,
		Category:         e.Category,
		PaymentMethod:    string(e.PaymentMethod),
		Month:            e.Period.Month,
		Year:             e.Period.Year,
		InstallmentIndex: e.Recurrence.Index,
		InstallmentCount: e.Recurrence.Count,
		IsRecurring:      e.Recurrence.IsRecurring(),
		CreatedAt:        e.CreatedAt,
	}
}

func toExpenseResponses(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.budget.ListExpenses(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponses(expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	exp, err := s.budget.CreateExpense(r.Context(), req.toDraft())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(exp))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	exp, err := s.budget.UpdateExpense(r.Context(), id, req.toDraft())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(exp))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	exp, err := s.budget.DeleteExpense(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteExpenseResponse{
		Message: "expense deleted",
		Expense: toExpenseResponse(exp),
	})
}

type deleteExpenseResponse struct {
	Message string          `json:"message"`
	Expense expenseResponse `json:"expense"`
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
