package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Card PaymentMethod = "Card"
	Cash PaymentMethod = "Cash"
)

const (
	OneOff      RecurrenceKind = "one_off"
	Installment RecurrenceKind = "installment"
	Recurring   RecurrenceKind = "recurring"
)

type (
	PaymentMethod string

	RecurrenceKind string

	// Recurrence is the tagged recurrence shape of an expense. Index and
	// Count are meaningful only for the Installment kind (1-based, with
	// Index <= Count).
	Recurrence struct {
		Kind  RecurrenceKind
		Index int
		Count int
	}

	Expense struct {
		ID            int64
		Description   string
		Amount        Money
		Category      string
		PaymentMethod PaymentMethod
		Period        Period
		Recurrence    Recurrence
		CreatedAt     time.Time
	}

	// ExpenseDraft carries the caller-supplied fields of an expense.
	// ID and CreatedAt are assigned by the store on insert.
	ExpenseDraft struct {
		Description   string
		Amount        Money
		Category      string
		PaymentMethod PaymentMethod
		Period        Period
		Recurrence    Recurrence
	}

	Income struct {
		ID        int64
		Amount    Money
		Source    string
		Period    Period
		CreatedAt time.Time
	}

	IncomeDraft struct {
		Amount Money
		Source string
		Period Period
	}
)

var (
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidYear          = errors.New("invalid year")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrEmptySource          = errors.New("empty source")
	ErrSourceTooLong        = errors.New("source too long (max 200 characters)")
	ErrEmptyCategory        = errors.New("empty category")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidInstallments  = errors.New("invalid installment progression")
	ErrInvalidPeriod        = errors.New("invalid period")
	ErrNotFound             = errors.New("record not found")
)

func (pm PaymentMethod) Validate() error {
	switch pm {
	case Card, Cash:
		return nil
	default:
		return ErrInvalidPaymentMethod
	}
}

// OneOffRecurrence is the shape of a plain, non-repeating expense.
func OneOffRecurrence() Recurrence {
	return Recurrence{Kind: OneOff, Index: 1, Count: 1}
}

// InstallmentRecurrence describes payment index of count for a purchase
// paid in installments.
func InstallmentRecurrence(index, count int) Recurrence {
	return Recurrence{Kind: Installment, Index: index, Count: count}
}

// RecurringRecurrence marks an expense that conceptually repeats every month.
func RecurringRecurrence() Recurrence {
	return Recurrence{Kind: Recurring, Index: 1, Count: 1}
}

// RecurrenceFromColumns rebuilds the tagged variant from the flat storage
// shape (installment_index, installment_count, is_recurring).
func RecurrenceFromColumns(index, count int, recurring bool) Recurrence {
	switch {
	case recurring:
		return Recurrence{Kind: Recurring, Index: index, Count: count}
	case count > 1:
		return Recurrence{Kind: Installment, Index: index, Count: count}
	default:
		return Recurrence{Kind: OneOff, Index: index, Count: count}
	}
}

func (r Recurrence) Validate() error {
	switch r.Kind {
	case OneOff, Installment, Recurring:
	default:
		return ErrInvalidInstallments
	}
	if r.Index < 1 || r.Count < 1 || r.Index > r.Count {
		return ErrInvalidInstallments
	}
	return nil
}

// IsRecurring reports whether the expense repeats every month.
func (r Recurrence) IsRecurring() bool {
	return r.Kind == Recurring
}

// EligibleForDuplication reports whether the expense still has unpaid
// installments ahead of it. Recurring and one-off rows never qualify,
// since Index < Count can only hold for an installment in progress.
func (r Recurrence) EligibleForDuplication() bool {
	return r.Index < r.Count
}

// NextInstallment returns the recurrence advanced by one installment.
func (r Recurrence) NextInstallment() Recurrence {
	return Recurrence{Kind: r.Kind, Index: r.Index + 1, Count: r.Count}
}

func (e Expense) Validate() error {
	return validateExpenseFields(e.Description, e.Amount, e.Category, e.PaymentMethod, e.Period, e.Recurrence)
}

func (d ExpenseDraft) Validate() error {
	return validateExpenseFields(d.Description, d.Amount, d.Category, d.PaymentMethod, d.Period, d.Recurrence)
}

func validateExpenseFields(description string, amount Money, category string, pm PaymentMethod, period Period, rec Recurrence) error {
	if len(strings.TrimSpace(description)) == 0 {
		return ErrEmptyDescription
	}
	if len(description) > 200 {
		return ErrDescriptionTooLong
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	if err := pm.Validate(); err != nil {
		return err
	}
	if err := period.Validate(); err != nil {
		return err
	}
	return rec.Validate()
}

func (i Income) Validate() error {
	return validateIncomeFields(i.Amount, i.Source, i.Period)
}

func (d IncomeDraft) Validate() error {
	return validateIncomeFields(d.Amount, d.Source, d.Period)
}

func validateIncomeFields(amount Money, source string, period Period) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(source) == "" {
		return ErrEmptySource
	}
	if len(source) > 200 {
		return ErrSourceTooLong
	}
	return period.Validate()
}
