package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Repository persists expenses, categories and accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func notFound(what string, id int64) error {
	return fmt.Errorf("expenses: %s %d: %w", what, id, shared.ErrNotFound)
}

func expect(tag interface{ RowsAffected() int64 }, err error, what string, id int64) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(what, id)
	}
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (Expense, error) {
	var e Expense
	err := r.pool.QueryRow(ctx, `SELECT id, description, amount, expense_date, category, account_id
		FROM expenses WHERE id = $1`, id).Scan(&e.ID, &e.Description, &e.Amount, &e.Date, &e.Category, &e.AccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, notFound("expense", id)
	}
	return e, err
}

// ListExpenses returns expenses newest first.
func (r *Repository) ListExpenses(ctx context.Context, f Filter) ([]Expense, error) {
	var (
		where []string
		args  []any
	)
	if f.Range.Start != "" {
		args = append(args, f.Range.Start)
		where = append(where, fmt.Sprintf("expense_date >= $%d", len(args)))
	}
	if f.Range.End != "" {
		args = append(args, f.Range.End)
		where = append(where, fmt.Sprintf("expense_date <= $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	sql := `SELECT id, description, amount, expense_date, category, account_id FROM expenses`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	rows, err := r.pool.Query(ctx, sql+` ORDER BY expense_date DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Expense])
}

func (r *Repository) CreateExpense(ctx context.Context, in Input) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses (description, amount, expense_date, category, account_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		in.Description, in.Amount, in.Date, in.Category, in.AccountID).Scan(&id)
	return id, err
}

func (r *Repository) UpdateExpense(ctx context.Context, id int64, in Input) error {
	tag, err := r.pool.Exec(ctx, `UPDATE expenses SET description = $2, amount = $3, expense_date = $4,
		category = $5, account_id = $6 WHERE id = $1`,
		id, in.Description, in.Amount, in.Date, in.Category, in.AccountID)
	return expect(tag, err, "expense", id)
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return expect(tag, err, "expense", id)
}

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Category])
}

func (r *Repository) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expense_categories (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	return id, err
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expense_categories WHERE id = $1`, id)
	return expect(tag, err, "category", id)
}

func (r *Repository) ListAccounts(ctx context.Context, typ AccountType) ([]Account, error) {
	sql := `SELECT id, name, type, description FROM accounts`
	var args []any
	if typ != "" {
		sql += ` WHERE type = $1`
		args = append(args, typ)
	}
	rows, err := r.pool.Query(ctx, sql+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Account])
}

func (r *Repository) CreateAccount(ctx context.Context, in AccountInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO accounts (name, type, description) VALUES ($1, $2, $3) RETURNING id`,
		in.Name, in.Type, in.Description).Scan(&id)
	return id, err
}

func (r *Repository) UpdateAccount(ctx context.Context, id int64, in AccountInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET name = $2, type = $3, description = $4 WHERE id = $1`,
		id, in.Name, in.Type, in.Description)
	return expect(tag, err, "account", id)
}

func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return expect(tag, err, "account", id)
}
