package services

import (
	"context"
	"fmt"
	"log/slog"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
)

// DuplicationStore is the slice of storage the rollover needs.
type DuplicationStore interface {
	ListEligibleInstallments(ctx context.Context, period core.Period) ([]core.Expense, error)
	InsertExpensesBatch(ctx context.Context, drafts []core.ExpenseDraft) ([]core.Expense, error)
}

// DuplicationResult describes one completed rollover: which period was
// swept, which period received the copies, and the rows created.
type DuplicationResult struct {
	Source  core.Period
	Target  core.Period
	Created []core.Expense
}

func (r DuplicationResult) Count() int {
	return len(r.Created)
}

// SummaryInvalidator drops cached summary snapshots after a write.
// BudgetService implements it for the API process.
type SummaryInvalidator interface {
	InvalidateSummaries()
}

// DuplicationService advances in-progress installment purchases from a
// source month into the following month. One-off and recurring expenses
// are never touched; an installment whose index has reached its count is
// finished and stays behind.
type DuplicationService struct {
	store     DuplicationStore
	events    *amqp.Client
	summaries SummaryInvalidator
}

// NewDuplicationService wires the rollover to its store. summaries may
// be nil when no snapshot cache exists in the process (the worker
// binary); otherwise it is purged after every batch of copies, so the
// next summary read sees the new rows.
func NewDuplicationService(store DuplicationStore, events *amqp.Client, summaries SummaryInvalidator) *DuplicationService {
	return &DuplicationService{
		store:     store,
		events:    events,
		summaries: summaries,
	}
}

// Duplicate copies every eligible installment of the source period into
// the next period, advancing each installment index by one. All copies
// are inserted in a single transaction: either every candidate lands in
// the target month or none do. An empty candidate set is a success with
// count zero, not an error.
func (s *DuplicationService) Duplicate(ctx context.Context, sourceMonth, sourceYear int) (DuplicationResult, error) {
	source := core.NewPeriod(sourceMonth, sourceYear)
	if err := source.Validate(); err != nil {
		return DuplicationResult{}, fmt.Errorf("%w: month %d year %d", core.ErrInvalidPeriod, sourceMonth, sourceYear)
	}
	target := source.Next()

	result := DuplicationResult{Source: source, Target: target}

	eligible, err := s.store.ListEligibleInstallments(ctx, source)
	if err != nil {
		return DuplicationResult{}, fmt.Errorf("failed to list eligible installments for %s: %w", source, err)
	}

	if len(eligible) == 0 {
		slog.InfoContext(ctx, "no installments to duplicate",
			"source", source.String(),
			"target", target.String())
		return result, nil
	}

	drafts := make([]core.ExpenseDraft, 0, len(eligible))
	for _, exp := range eligible {
		drafts = append(drafts, core.ExpenseDraft{
			Description:   exp.Description,
			Amount:        exp.Amount,
			Category:      exp.Category,
			PaymentMethod: exp.PaymentMethod,
			Period:        target,
			Recurrence:    exp.Recurrence.NextInstallment(),
		})
	}

	created, err := s.store.InsertExpensesBatch(ctx, drafts)
	if err != nil {
		return DuplicationResult{}, fmt.Errorf("failed to duplicate installments into %s: %w", target, err)
	}
	result.Created = created

	if s.summaries != nil {
		s.summaries.InvalidateSummaries()
	}

	slog.InfoContext(ctx, "installments duplicated",
		"source", source.String(),
		"target", target.String(),
		"count", len(created))

	msg := amqp.NewDuplicationEventMessage(source.Month, source.Year, target.Month, target.Year, len(created))
	if err := s.events.PublishDuplicationEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish duplication event", "error", err)
	}

	return result, nil
}
