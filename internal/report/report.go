// Package report derives monthly summaries from an in-memory snapshot of
// expenses and incomes. Everything here is a pure transformation: the
// snapshot is read-only and never authoritative, callers refetch it from
// the record store after any mutation.
package report

import (
	"sort"

	"presupuesto/internal/core"
)

// FilterAll is the facet sentinel meaning "no filter".
const FilterAll = ""

// Filters narrows a period snapshot by category and/or payment method.
// The zero value keeps everything.
type Filters struct {
	Category      string
	PaymentMethod string
}

// CategoryAmount is one slice of the per-category breakdown.
type CategoryAmount struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

// Summary is the aggregate view of one period under the given filters.
type Summary struct {
	Period                   core.Period      `json:"-"`
	Month                    int              `json:"month"`
	Year                     int              `json:"year"`
	TotalExpenses            core.Money       `json:"total_expenses"`
	TotalIncomes             core.Money       `json:"total_incomes"`
	Balance                  core.Money       `json:"balance"`
	ByCategory               []CategoryAmount `json:"by_category"`
	Categories               []string         `json:"categories"`
	PaymentMethods           []string         `json:"payment_methods"`
	HasDuplicationCandidates bool             `json:"has_duplication_candidates"`
	Expenses                 int              `json:"expense_count"`
	Incomes                  int              `json:"income_count"`
}

// FilterExpenses keeps the rows of the given period that match the
// filters. Applying the same filters twice, or category and payment
// method in either order, yields the same set.
func FilterExpenses(expenses []core.Expense, period core.Period, f Filters) []core.Expense {
	filtered := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Period != period {
			continue
		}
		if f.Category != FilterAll && e.Category != f.Category {
			continue
		}
		if f.PaymentMethod != FilterAll && string(e.PaymentMethod) != f.PaymentMethod {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// FilterIncomes keeps the incomes of the given period.
func FilterIncomes(incomes []core.Income, period core.Period) []core.Income {
	filtered := make([]core.Income, 0, len(incomes))
	for _, i := range incomes {
		if i.Period == period {
			filtered = append(filtered, i)
		}
	}
	return filtered
}

// TotalExpenses sums the amounts of the filtered expenses, in cents.
func TotalExpenses(expenses []core.Expense) core.Money {
	var cents int64
	for _, e := range expenses {
		cents += e.Amount.Cents
	}
	return core.Money{Cents: cents}
}

// TotalIncomes sums the amounts of the filtered incomes, in cents.
func TotalIncomes(incomes []core.Income) core.Money {
	var cents int64
	for _, i := range incomes {
		cents += i.Amount.Cents
	}
	return core.Money{Cents: cents}
}

// Balance is incomes minus expenses; negative values are valid.
func Balance(incomes, expenses core.Money) core.Money {
	return core.Money{Cents: incomes.Cents - expenses.Cents}
}

// ByCategory groups the filtered expenses by category and sums each
// group. Output is sorted by name so charts render deterministically.
func ByCategory(expenses []core.Expense) []CategoryAmount {
	sums := make(map[string]int64)
	for _, e := range expenses {
		sums[e.Category] += e.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Categories returns the distinct category facets present across the
// whole snapshot, sorted. Callers prepend their own "all" sentinel when
// rendering filter controls.
func Categories(expenses []core.Expense) []string {
	return distinct(expenses, func(e core.Expense) string { return e.Category })
}

// PaymentMethods returns the distinct payment method facets, sorted.
func PaymentMethods(expenses []core.Expense) []string {
	return distinct(expenses, func(e core.Expense) string { return string(e.PaymentMethod) })
}

func distinct(expenses []core.Expense, key func(core.Expense) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range expenses {
		k := key(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasDuplicationCandidates reports whether any filtered row still has
// installments ahead of it.
func HasDuplicationCandidates(expenses []core.Expense) bool {
	for _, e := range expenses {
		if e.Recurrence.EligibleForDuplication() {
			return true
		}
	}
	return false
}

// BuildSummary assembles the full aggregate view for one period. Facets
// are derived from the unfiltered snapshot so the filter controls keep
// showing every known value.
func BuildSummary(expenses []core.Expense, incomes []core.Income, period core.Period, f Filters) Summary {
	filteredExpenses := FilterExpenses(expenses, period, f)
	filteredIncomes := FilterIncomes(incomes, period)

	totalExpenses := TotalExpenses(filteredExpenses)
	totalIncomes := TotalIncomes(filteredIncomes)

	return Summary{
		Period:                   period,
		Month:                    period.Month,
		Year:                     period.Year,
		TotalExpenses:            totalExpenses,
		TotalIncomes:             totalIncomes,
		Balance:                  Balance(totalIncomes, totalExpenses),
		ByCategory:               ByCategory(filteredExpenses),
		Categories:               Categories(expenses),
		PaymentMethods:           PaymentMethods(expenses),
		HasDuplicationCandidates: HasDuplicationCandidates(filteredExpenses),
		Expenses:                 len(filteredExpenses),
		Incomes:                  len(filteredIncomes),
	}
}
