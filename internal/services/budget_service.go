package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/cache"
	"presupuesto/internal/core"
	"presupuesto/internal/report"
)

const (
	summaryCacheSize = 64
	summaryCacheTTL  = 30 * time.Second
)

// BudgetStore is the storage surface the service needs. SQLiteRepository
// satisfies it; tests plug in fakes.
type BudgetStore interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	CreateExpense(ctx context.Context, draft core.ExpenseDraft) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, draft core.ExpenseDraft) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) (core.Expense, error)
	ListIncomes(ctx context.Context) ([]core.Income, error)
	CreateIncome(ctx context.Context, draft core.IncomeDraft) (core.Income, error)
	DeleteIncome(ctx context.Context, id int64) (core.Income, error)
}

// BudgetService fronts the store with event publishing and a summary
// snapshot cache. Event publish failures are logged, never surfaced: the
// write already committed and the API answer must reflect that.
type BudgetService struct {
	store     BudgetStore
	events    *amqp.Client
	summaries *cache.Cache[string, report.Summary]
}

func NewBudgetService(store BudgetStore, events *amqp.Client) *BudgetService {
	return &BudgetService{
		store:     store,
		events:    events,
		summaries: cache.New[string, report.Summary](summaryCacheSize, summaryCacheTTL),
	}
}

func (s *BudgetService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

func (s *BudgetService) CreateExpense(ctx context.Context, draft core.ExpenseDraft) (core.Expense, error) {
	exp, err := s.store.CreateExpense(ctx, draft)
	if err != nil {
		return core.Expense{}, err
	}
	s.summaries.Purge()
	s.notify(ctx, amqp.EventExpenseCreated, exp.ID, exp.Period)
	return exp, nil
}

func (s *BudgetService) UpdateExpense(ctx context.Context, id int64, draft core.ExpenseDraft) (core.Expense, error) {
	exp, err := s.store.UpdateExpense(ctx, id, draft)
	if err != nil {
		return core.Expense{}, err
	}
	s.summaries.Purge()
	s.notify(ctx, amqp.EventExpenseUpdated, exp.ID, exp.Period)
	return exp, nil
}

func (s *BudgetService) DeleteExpense(ctx context.Context, id int64) (core.Expense, error) {
	exp, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	s.summaries.Purge()
	s.notify(ctx, amqp.EventExpenseDeleted, exp.ID, exp.Period)
	return exp, nil
}

func (s *BudgetService) ListIncomes(ctx context.Context) ([]core.Income, error) {
	return s.store.ListIncomes(ctx)
}

func (s *BudgetService) CreateIncome(ctx context.Context, draft core.IncomeDraft) (core.Income, error) {
	inc, err := s.store.CreateIncome(ctx, draft)
	if err != nil {
		return core.Income{}, err
	}
	s.summaries.Purge()
	s.notify(ctx, amqp.EventIncomeCreated, inc.ID, inc.Period)
	return inc, nil
}

func (s *BudgetService) DeleteIncome(ctx context.Context, id int64) (core.Income, error) {
	inc, err := s.store.DeleteIncome(ctx, id)
	if err != nil {
		return core.Income{}, err
	}
	s.summaries.Purge()
	s.notify(ctx, amqp.EventIncomeDeleted, inc.ID, inc.Period)
	return inc, nil
}

// Summary builds the monthly report for a period and filter set. The
// result is a pure function of the current records, so it can be cached
// until the next write.
func (s *BudgetService) Summary(ctx context.Context, period core.Period, f report.Filters) (report.Summary, error) {
	if err := period.Validate(); err != nil {
		return report.Summary{}, fmt.Errorf("%w: month %d year %d", core.ErrInvalidPeriod, period.Month, period.Year)
	}

	key := summaryKey(period, f)
	if cached, ok := s.summaries.Get(key); ok {
		return cached, nil
	}

	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return report.Summary{}, fmt.Errorf("failed to load expenses for summary: %w", err)
	}
	incomes, err := s.store.ListIncomes(ctx)
	if err != nil {
		return report.Summary{}, fmt.Errorf("failed to load incomes for summary: %w", err)
	}

	summary := report.BuildSummary(expenses, incomes, period, f)
	s.summaries.Set(key, summary)
	return summary, nil
}

// InvalidateSummaries drops every cached snapshot. Writes that bypass
// this service (the duplication batch insert) call it so summary reads
// never serve pre-write state.
func (s *BudgetService) InvalidateSummaries() {
	s.summaries.Purge()
}

func summaryKey(period core.Period, f report.Filters) string {
	return fmt.Sprintf("%s|%s|%s", period, f.Category, f.PaymentMethod)
}

func (s *BudgetService) notify(ctx context.Context, event string, id int64, period core.Period) {
	msg := amqp.NewRecordEventMessage(event, id, period.Month, period.Year)
	if err := s.events.PublishRecordEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish record event",
			"event", event,
			"id", id,
			"error", err)
	}
}
