package http

import (
	"net/http"
	"time"

	"presupuesto/internal/core"
)

type incomeRequest struct {
	Amount core.Money `json:"amount"`
	Source string     `json:"source"`
	Month  int        `json:"month"`
	Year   int        `json:"year"`
}

func (req incomeRequest) toDraft() core.IncomeDraft {
	return core.IncomeDraft{
		Amount: req.Amount,
		Source: req.Source,
		Period: core.NewPeriod(req.Month, req.Year),
	}
}

type incomeResponse struct {
	ID        int64      `json:"id"`
	Amount    core.Money `json:"amount"`
	Source    string     `json:"source"`
	Month     int        `json:"month"`
	Year      int        `json:"year"`
	CreatedAt time.Time  `json:"created_at"`
}

func toIncomeResponse(i core.Income) incomeResponse {
	return incomeResponse{
		ID:        i.ID,
		Amount:    i.Amount,
		Source:    i.Source,
		Month:     i.Period.Month,
		Year:      i.Period.Year,
		CreatedAt: i.CreatedAt,
	}
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.budget.ListIncomes(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]incomeResponse, 0, len(incomes))
	for _, i := range incomes {
		out = append(out, toIncomeResponse(i))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	inc, err := s.budget.CreateIncome(r.Context(), req.toDraft())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncomeResponse(inc))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	inc, err := s.budget.DeleteIncome(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteIncomeResponse{
		Message: "income deleted",
		Income:  toIncomeResponse(inc),
	})
}

type deleteIncomeResponse struct {
	Message string         `json:"message"`
	Income  incomeResponse `json:"income"`
}
