package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presupuesto/internal/core"
	"presupuesto/internal/report"
	"presupuesto/internal/services"
)

type fakeBudget struct {
	expenses []core.Expense
	incomes  []core.Income
	nextID   int64
	failWith error
}

func (f *fakeBudget) ListExpenses(context.Context) ([]core.Expense, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return append([]core.Expense(nil), f.expenses...), nil
}

func (f *fakeBudget) CreateExpense(_ context.Context, draft core.ExpenseDraft) (core.Expense, error) {
	if f.failWith != nil {
		return core.Expense{}, f.failWith
	}
	if err := draft.Validate(); err != nil {
		return core.Expense{}, err
	}
	f.nextID++
	exp := core.Expense{
		ID:            f.nextID,
		Description:   draft.Description,
		Amount:        draft.Amount,
		Category:      draft.Category,
		PaymentMethod: draft.PaymentMethod,
		Period:        draft.Period,
		Recurrence:    draft.Recurrence,
	}
	f.expenses = append(f.expenses, exp)
	return exp, nil
}

func (f *fakeBudget) UpdateExpense(_ context.Context, id int64, draft core.ExpenseDraft) (core.Expense, error) {
	for i, exp := range f.expenses {
		if exp.ID == id {
			if err := draft.Validate(); err != nil {
				return core.Expense{}, err
			}
			exp.Description = draft.Description
			exp.Amount = draft.Amount
			exp.Category = draft.Category
			exp.PaymentMethod = draft.PaymentMethod
			exp.Recurrence = draft.Recurrence
			f.expenses[i] = exp
			return exp, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (f *fakeBudget) DeleteExpense(_ context.Context, id int64) (core.Expense, error) {
	for i, exp := range f.expenses {
		if exp.ID == id {
			f.expenses = append(f.expenses[:i], f.expenses[i+1:]...)
			return exp, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (f *fakeBudget) ListIncomes(context.Context) ([]core.Income, error) {
	return append([]core.Income(nil), f.incomes...), nil
}

func (f *fakeBudget) CreateIncome(_ context.Context, draft core.IncomeDraft) (core.Income, error) {
	if err := draft.Validate(); err != nil {
		return core.Income{}, err
	}
	f.nextID++
	inc := core.Income{ID: f.nextID, Amount: draft.Amount, Source: draft.Source, Period: draft.Period}
	f.incomes = append(f.incomes, inc)
	return inc, nil
}

func (f *fakeBudget) DeleteIncome(_ context.Context, id int64) (core.Income, error) {
	for i, inc := range f.incomes {
		if inc.ID == id {
			f.incomes = append(f.incomes[:i], f.incomes[i+1:]...)
			return inc, nil
		}
	}
	return core.Income{}, core.ErrNotFound
}

func (f *fakeBudget) Summary(_ context.Context, period core.Period, filters report.Filters) (report.Summary, error) {
	if err := period.Validate(); err != nil {
		return report.Summary{}, core.ErrInvalidPeriod
	}
	return report.BuildSummary(f.expenses, f.incomes, period, filters), nil
}

type fakeDuplicator struct {
	result services.DuplicationResult
	err    error
	gotCtx bool
}

func (f *fakeDuplicator) Duplicate(_ context.Context, sourceMonth, sourceYear int) (services.DuplicationResult, error) {
	f.gotCtx = true
	if f.err != nil {
		return services.DuplicationResult{}, f.err
	}
	return f.result, nil
}

func newTestServer(t *testing.T, budget BudgetAPI, dup Duplicator) *Server {
	t.Helper()
	s := NewServer(":0", budget, dup)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpense(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	body := `{"description":"Laptop","amount":"1000.00","category":"Tech","payment_method":"Card","month":3,"year":2024,"installment_index":1,"installment_count":4}`
	rec := doRequest(s, http.MethodPost, "/expenses", body)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Laptop", got["description"])
	assert.Equal(t, "1000.00", got["amount"])
	assert.Equal(t, float64(1), got["installment_index"])
	assert.Equal(t, float64(4), got["installment_count"])
	assert.Equal(t, false, got["is_recurring"])
}

func TestCreateExpenseAcceptsNumericAmount(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	body := `{"description":"Coffee","amount":3.5,"category":"Food","payment_method":"Cash","month":3,"year":2024}`
	rec := doRequest(s, http.MethodPost, "/expenses", body)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "3.50", got["amount"])
	assert.Equal(t, float64(1), got["installment_count"], "omitted installments default to one-off")
}

func TestCreateExpenseValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"empty description", `{"description":"  ","amount":"5.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"description":"x","amount":"0","category":"Food","payment_method":"Cash","month":3,"year":2024}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"description":"x","amount":"-5.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`, http.StatusUnprocessableEntity},
		{"bad payment method", `{"description":"x","amount":"5.00","category":"Food","payment_method":"Crypto","month":3,"year":2024}`, http.StatusUnprocessableEntity},
		{"month thirteen", `{"description":"x","amount":"5.00","category":"Food","payment_method":"Cash","month":13,"year":2024}`, http.StatusUnprocessableEntity},
		{"index beyond count", `{"description":"x","amount":"5.00","category":"Food","payment_method":"Cash","month":3,"year":2024,"installment_index":5,"installment_count":4}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})
			rec := doRequest(s, http.MethodPost, "/expenses", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestListExpenses(t *testing.T) {
	budget := &fakeBudget{}
	s := newTestServer(t, budget, &fakeDuplicator{})

	doRequest(s, http.MethodPost, "/expenses", `{"description":"A","amount":"1.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`)
	doRequest(s, http.MethodPost, "/expenses", `{"description":"B","amount":"2.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`)

	rec := doRequest(s, http.MethodGet, "/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestListExpensesEmptyIsJSONArray(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodGet, "/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestUpdateExpense(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	doRequest(s, http.MethodPost, "/expenses", `{"description":"Old","amount":"5.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`)

	rec := doRequest(s, http.MethodPut, "/expenses/1", `{"description":"New","amount":"7.50","category":"Food","payment_method":"Card","month":3,"year":2024}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "New", got["description"])
	assert.Equal(t, "7.50", got["amount"])
	assert.Equal(t, "Card", got["payment_method"])
}

func TestUpdateExpenseNotFound(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodPut, "/expenses/99", `{"description":"New","amount":"7.50","category":"Food","payment_method":"Card","month":3,"year":2024}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteExpense(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	doRequest(s, http.MethodPost, "/expenses", `{"description":"Gone","amount":"5.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`)

	rec := doRequest(s, http.MethodDelete, "/expenses/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "expense deleted", got["message"])
	deleted, ok := got["expense"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Gone", deleted["description"])

	rec = doRequest(s, http.MethodDelete, "/expenses/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteExpenseInvalidID(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodDelete, "/expenses/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageFailureIsInternalError(t *testing.T) {
	budget := &fakeBudget{failWith: errors.New("connection reset")}
	s := newTestServer(t, budget, &fakeDuplicator{})

	rec := doRequest(s, http.MethodGet, "/expenses", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestIncomeLifecycle(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodPost, "/incomes", `{"amount":"1500.00","source":"Salary","month":3,"year":2024}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodGet, "/incomes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Salary", got[0]["source"])
	assert.Equal(t, "1500.00", got[0]["amount"])

	rec = doRequest(s, http.MethodDelete, "/incomes/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/incomes/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateIncomeValidation(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodPost, "/incomes", `{"amount":"1500.00","source":"","month":3,"year":2024}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDuplicateExpenses(t *testing.T) {
	dup := &fakeDuplicator{
		result: services.DuplicationResult{
			Source: core.NewPeriod(3, 2024),
			Target: core.NewPeriod(4, 2024),
			Created: []core.Expense{{
				ID:            7,
				Description:   "Laptop",
				Amount:        core.Money{Cents: 100000},
				Category:      "Tech",
				PaymentMethod: core.Card,
				Period:        core.NewPeriod(4, 2024),
				Recurrence:    core.InstallmentRecurrence(2, 4),
			}},
		},
	}
	s := newTestServer(t, &fakeBudget{}, dup)

	rec := doRequest(s, http.MethodPost, "/expenses/duplicate", `{"sourceMonth":3,"sourceYear":2024}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got duplicateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.DuplicatedCount)
	require.Len(t, got.Duplicated, 1)
	assert.Equal(t, 2, got.Duplicated[0].InstallmentIndex)
	assert.Equal(t, 4, got.Duplicated[0].Month)
}

func TestDuplicateExpensesZeroCandidates(t *testing.T) {
	dup := &fakeDuplicator{
		result: services.DuplicationResult{
			Source: core.NewPeriod(7, 2025),
			Target: core.NewPeriod(8, 2025),
		},
	}
	s := newTestServer(t, &fakeBudget{}, dup)

	rec := doRequest(s, http.MethodPost, "/expenses/duplicate", `{"sourceMonth":7,"sourceYear":2025}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got duplicateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Zero(t, got.DuplicatedCount)
	assert.NotNil(t, got.Duplicated)
	assert.Empty(t, got.Duplicated)
}

func TestDuplicateExpensesMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"missing year", `{"sourceMonth":3}`},
		{"missing month", `{"sourceYear":2024}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup := &fakeDuplicator{}
			s := newTestServer(t, &fakeBudget{}, dup)

			rec := doRequest(s, http.MethodPost, "/expenses/duplicate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, dup.gotCtx, "duplicator must not run on a malformed request")
		})
	}
}

func TestDuplicateExpensesInvalidPeriod(t *testing.T) {
	dup := &fakeDuplicator{err: core.ErrInvalidPeriod}
	s := newTestServer(t, &fakeBudget{}, dup)

	rec := doRequest(s, http.MethodPost, "/expenses/duplicate", `{"sourceMonth":0,"sourceYear":2024}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSummary(t *testing.T) {
	budget := &fakeBudget{}
	s := newTestServer(t, budget, &fakeDuplicator{})

	doRequest(s, http.MethodPost, "/expenses", `{"description":"Rent","amount":"800.00","category":"Housing","payment_method":"Card","month":3,"year":2024}`)
	doRequest(s, http.MethodPost, "/expenses", `{"description":"Pizza","amount":"20.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`)
	doRequest(s, http.MethodPost, "/incomes", `{"amount":"1500.00","source":"Salary","month":3,"year":2024}`)

	rec := doRequest(s, http.MethodGet, "/summary?month=3&year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "820.00", got["total_expenses"])
	assert.Equal(t, "1500.00", got["total_incomes"])
	assert.Equal(t, "680.00", got["balance"])
	assert.Equal(t, float64(2), got["expense_count"])

	rec = doRequest(s, http.MethodGet, "/summary?month=3&year=2024&category=Food", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "20.00", got["total_expenses"])
	categories, ok := got["categories"].([]any)
	require.True(t, ok)
	assert.Len(t, categories, 2, "facets come from the unfiltered snapshot")
}

func TestSummaryParameterErrors(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodGet, "/summary", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/summary?month=3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/summary?month=0&year=2024", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	rec := doRequest(s, http.MethodGet, "/expenses", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	s := newTestServer(t, &fakeBudget{}, &fakeDuplicator{})

	body := `{"description":"x","amount":"1.00","category":"Food","payment_method":"Cash","month":3,"year":2024}`
	var last int
	for i := 0; i < 70; i++ {
		rec := doRequest(s, http.MethodPost, "/expenses", body)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// Reads are never rate limited.
	rec := doRequest(s, http.MethodGet, "/expenses", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
