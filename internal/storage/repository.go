package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"presupuesto/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the authoritative record store. Every query binds
// user-supplied values as parameters; no text is ever interpolated into
// SQL.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = `id, description, amount_cents, category, payment_method, month, year, installment_index, installment_count, is_recurring, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e            core.Expense
		cents        int64
		pm           string
		index, count int
		recurring    bool
	)
	err := row.Scan(&e.ID, &e.Description, &cents, &e.Category, &pm,
		&e.Period.Month, &e.Period.Year, &index, &count, &recurring, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Money{Cents: cents}
	e.PaymentMethod = core.PaymentMethod(pm)
	e.Recurrence = core.RecurrenceFromColumns(index, count, recurring)
	return e, nil
}

func scanIncome(row rowScanner) (core.Income, error) {
	var (
		i     core.Income
		cents int64
	)
	err := row.Scan(&i.ID, &cents, &i.Source, &i.Period.Month, &i.Period.Year, &i.CreatedAt)
	if err != nil {
		return core.Income{}, err
	}
	i.Amount = core.Money{Cents: cents}
	return i, nil
}

// ListExpenses returns every expense, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// ListIncomes returns every income, newest first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, source, month, year, created_at FROM incomes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		incomes = append(incomes, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomes: %w", err)
	}
	return incomes, nil
}

// CreateExpense validates the draft, assigns id and created_at, and
// persists the row.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, draft core.ExpenseDraft) (core.Expense, error) {
	if err := draft.Validate(); err != nil {
		return core.Expense{}, err
	}

	createdAt := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (description, amount_cents, category, payment_method, month, year, installment_index, installment_count, is_recurring, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.Description, draft.Amount.Cents, draft.Category, string(draft.PaymentMethod),
		draft.Period.Month, draft.Period.Year,
		draft.Recurrence.Index, draft.Recurrence.Count, draft.Recurrence.IsRecurring(), createdAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"description", draft.Description,
		"amount_cents", draft.Amount.Cents,
		"month", draft.Period.Month,
		"year", draft.Period.Year)

	return core.Expense{
		ID:            id,
		Description:   draft.Description,
		Amount:        draft.Amount,
		Category:      draft.Category,
		PaymentMethod: draft.PaymentMethod,
		Period:        draft.Period,
		Recurrence:    draft.Recurrence,
		CreatedAt:     createdAt,
	}, nil
}

// CreateIncome validates the draft and persists the row.
func (r *SQLiteRepository) CreateIncome(ctx context.Context, draft core.IncomeDraft) (core.Income, error) {
	if err := draft.Validate(); err != nil {
		return core.Income{}, err
	}

	createdAt := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (amount_cents, source, month, year, created_at) VALUES (?, ?, ?, ?, ?)`,
		draft.Amount.Cents, draft.Source, draft.Period.Month, draft.Period.Year, createdAt)
	if err != nil {
		return core.Income{}, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Income{}, fmt.Errorf("income id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", id,
		"source", draft.Source,
		"amount_cents", draft.Amount.Cents,
		"month", draft.Period.Month,
		"year", draft.Period.Year)

	return core.Income{
		ID:        id,
		Amount:    draft.Amount,
		Source:    draft.Source,
		Period:    draft.Period,
		CreatedAt: createdAt,
	}, nil
}

// GetExpense retrieves a single expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// DeleteExpense removes the row and returns it, so callers can report
// what was deleted.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM expenses WHERE id = ? RETURNING `+expenseColumns, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return e, nil
}

// DeleteIncome removes the row and returns it.
func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id int64) (core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM incomes WHERE id = ? RETURNING id, amount_cents, source, month, year, created_at`, id)
	i, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, fmt.Errorf("income %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("delete income: %w", err)
	}

	slog.InfoContext(ctx, "Income deleted", "id", id)
	return i, nil
}

// UpdateExpense replaces the caller-editable fields of an existing row
// in one round trip. The period and created_at stay as they were
// recorded; the draft's period is validated but never written.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, draft core.ExpenseDraft) (core.Expense, error) {
	if err := draft.Validate(); err != nil {
		return core.Expense{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE expenses
		 SET description = ?, amount_cents = ?, category = ?, payment_method = ?,
		     installment_index = ?, installment_count = ?, is_recurring = ?
		 WHERE id = ?
		 RETURNING `+expenseColumns,
		draft.Description, draft.Amount.Cents, draft.Category, string(draft.PaymentMethod),
		draft.Recurrence.Index, draft.Recurrence.Count, draft.Recurrence.IsRecurring(), id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense updated", "id", id)
	return e, nil
}

// ListEligibleInstallments returns the expenses at the given period whose
// installment progression has not finished (installment_index strictly
// below installment_count).
func (r *SQLiteRepository) ListEligibleInstallments(ctx context.Context, period core.Period) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE month = ? AND year = ? AND installment_index < installment_count
		 ORDER BY created_at DESC, id DESC`,
		period.Month, period.Year)
	if err != nil {
		return nil, fmt.Errorf("list eligible installments: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible installments: %w", err)
	}
	return expenses, nil
}

// InsertExpensesBatch persists all drafts inside one transaction. Either
// every row is inserted or none is; the transaction is always released.
func (r *SQLiteRepository) InsertExpensesBatch(ctx context.Context, drafts []core.ExpenseDraft) ([]core.Expense, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (description, amount_cents, category, payment_method, month, year, installment_index, installment_count, is_recurring, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC()
	created := make([]core.Expense, 0, len(drafts))
	for _, draft := range drafts {
		res, err := stmt.ExecContext(ctx,
			draft.Description, draft.Amount.Cents, draft.Category, string(draft.PaymentMethod),
			draft.Period.Month, draft.Period.Year,
			draft.Recurrence.Index, draft.Recurrence.Count, draft.Recurrence.IsRecurring(), createdAt)
		if err != nil {
			return nil, fmt.Errorf("batch insert expense %q: %w", draft.Description, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("batch insert expense id: %w", err)
		}
		created = append(created, core.Expense{
			ID:            id,
			Description:   draft.Description,
			Amount:        draft.Amount,
			Category:      draft.Category,
			PaymentMethod: draft.PaymentMethod,
			Period:        draft.Period,
			Recurrence:    draft.Recurrence,
			CreatedAt:     createdAt,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch insert: %w", err)
	}

	slog.InfoContext(ctx, "Expense batch inserted", "count", len(created))
	return created, nil
}
