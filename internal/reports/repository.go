package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Repository runs the read-only reporting queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InvoiceTotals sums invoice totals and captured COGS for invoices issued in range.
func (r *Repository) InvoiceTotals(ctx context.Context, rng shared.DateRange) (decimal.Decimal, decimal.Decimal, error) {
	var revenue, cogs decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT
		COALESCE((SELECT SUM(total_amount) FROM invoices WHERE issue_date BETWEEN $1 AND $2), 0),
		COALESCE((SELECT SUM(ii.cost_of_good_sold) FROM invoice_items ii
			JOIN invoices i ON i.id = ii.invoice_id WHERE i.issue_date BETWEEN $1 AND $2), 0)`,
		rng.Start, rng.End).Scan(&revenue, &cogs)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("reports: invoice totals: %w", err)
	}
	return revenue, cogs, nil
}

// SoldLines returns the priced lines of invoices in range with their product account.
func (r *Repository) SoldLines(ctx context.Context, rng shared.DateRange) ([]SoldLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, COALESCE(a.name, ''), ii.quantity, ii.unit_price,
		ii.discount_percent, ii.tax_percent, ii.extra_fees
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		LEFT JOIN products p ON p.id = ii.product_id
		LEFT JOIN accounts a ON a.id = p.account_id
		WHERE i.issue_date BETWEEN $1 AND $2`, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("reports: sold lines: %w", err)
	}
	defer rows.Close()
	var out []SoldLine
	for rows.Next() {
		var (
			sl   SoldLine
			fees []byte
		)
		if err := rows.Scan(&sl.AccountID, &sl.AccountName, &sl.Line.Quantity, &sl.Line.UnitPrice,
			&sl.Line.DiscountPercent, &sl.Line.TaxPercent, &fees); err != nil {
			return nil, err
		}
		if len(fees) > 0 {
			if err := json.Unmarshal(fees, &sl.Line.Fees); err != nil {
				return nil, fmt.Errorf("reports: decode fees: %w", err)
			}
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// ExpensesByAccount groups expenses in range by account; expenses without one share a row.
func (r *Repository) ExpensesByAccount(ctx context.Context, rng shared.DateRange) ([]AccountTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, COALESCE(a.name, $3), SUM(e.amount)
		FROM expenses e LEFT JOIN accounts a ON a.id = e.account_id
		WHERE e.expense_date BETWEEN $1 AND $2
		GROUP BY a.id, a.name
		ORDER BY a.name NULLS LAST`, rng.Start, rng.End, UnassignedAccount)
	if err != nil {
		return nil, fmt.Errorf("reports: expenses by account: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[AccountTotal])
}

// InvoicesInRange lists invoice headers for the journal.
func (r *Repository) InvoicesInRange(ctx context.Context, rng shared.DateRange) ([]InvoiceRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.issue_date, COALESCE(c.name, ''), i.total_amount
		FROM invoices i LEFT JOIN customers c ON c.id = i.customer_id
		WHERE i.issue_date BETWEEN $1 AND $2 ORDER BY i.issue_date, i.id`, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("reports: invoices in range: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[InvoiceRow])
}

// ExpensesInRange lists expenses for the journal.
func (r *Repository) ExpensesInRange(ctx context.Context, rng shared.DateRange) ([]ExpenseRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT expense_date, description, amount FROM expenses
		WHERE expense_date BETWEEN $1 AND $2 ORDER BY expense_date, id`, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("reports: expenses in range: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ExpenseRow])
}

// Snapshot reads the all-time dashboard counters.
func (r *Repository) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx, `SELECT
		(SELECT COALESCE(SUM(amount_paid), 0) FROM invoices),
		(SELECT COALESCE(SUM(total_amount - amount_paid), 0) FROM invoices WHERE status <> 'paid'),
		(SELECT COALESCE(SUM(amount), 0) FROM expenses),
		(SELECT COUNT(*) FROM invoices),
		(SELECT COUNT(*) FROM invoices WHERE status <> 'paid'),
		(SELECT COALESCE(ROUND(AVG(total_amount), 2), 0) FROM invoices),
		(SELECT COUNT(*) FROM customers),
		(SELECT COUNT(*) FROM products)`).
		Scan(&s.Collected, &s.Receivables, &s.TotalExpenses, &s.InvoiceCount, &s.OpenInvoiceCount,
			&s.AverageInvoice, &s.CustomerCount, &s.ProductCount)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reports: snapshot: %w", err)
	}
	return s, nil
}

// ExpensesByCategory sums categorised expenses, largest first.
func (r *Repository) ExpensesByCategory(ctx context.Context) ([]CategoryTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, SUM(amount) AS total FROM expenses
		WHERE category <> '' GROUP BY category ORDER BY total DESC`)
	if err != nil {
		return nil, fmt.Errorf("reports: expenses by category: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[CategoryTotal])
}

// DailySales sums invoice totals per issue date in range.
func (r *Repository) DailySales(ctx context.Context, rng shared.DateRange) ([]DailySales, error) {
	rows, err := r.pool.Query(ctx, `SELECT issue_date, SUM(total_amount) FROM invoices
		WHERE issue_date BETWEEN $1 AND $2 GROUP BY issue_date`, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("reports: daily sales: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[DailySales])
}
