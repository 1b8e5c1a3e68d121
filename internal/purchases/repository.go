package purchases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/platform/db"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// Repository persists purchases in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: inventory.NewTxRepository(tx)})
	})
}

type txRepo struct {
	tx    pgx.Tx
	stock inventory.TxRepository
}

func (r *txRepo) Stock() inventory.TxRepository { return r.stock }

func (r *txRepo) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_invoices (supplier_id, issue_date, total_amount, notes)
		VALUES ($1, $2, $3, $4) RETURNING id`, p.SupplierID, p.IssueDate, p.TotalAmount, p.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("purchases: insert header: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertItem(ctx context.Context, purchaseID int64, it Item) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchase_invoice_items
		(purchase_invoice_id, line_no, product_id, product_name, quantity, purchase_price)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		purchaseID, it.LineNo, it.ProductID, it.ProductName, it.Quantity, it.PurchasePrice)
	if err != nil {
		return fmt.Errorf("purchases: insert line %d: %w", it.LineNo, err)
	}
	return nil
}

const headerColumns = `p.id, p.supplier_id, COALESCE(s.name, ''), p.issue_date, p.total_amount, p.notes`

func scanHeader(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.SupplierID, &p.SupplierName, &p.IssueDate, &p.TotalAmount, &p.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, shared.ErrNotFound
	}
	return p, err
}

// GetPurchase loads a header and its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+`
		FROM purchase_invoices p LEFT JOIN suppliers s ON s.id = p.supplier_id WHERE p.id = $1`, id))
	if err != nil {
		return Purchase{}, fmt.Errorf("purchases: purchase %d: %w", id, err)
	}
	rows, err := r.pool.Query(ctx, `SELECT line_no, product_id, product_name, quantity, purchase_price
		FROM purchase_invoice_items WHERE purchase_invoice_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return Purchase{}, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Item])
	if err != nil {
		return Purchase{}, fmt.Errorf("purchases: lines of %d: %w", id, err)
	}
	p.Items = items
	return p, nil
}

// ListPurchases returns headers matching the filter, newest first.
func (r *Repository) ListPurchases(ctx context.Context, f Filter) ([]Purchase, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.SupplierID > 0 {
		where = append(where, "p.supplier_id = "+arg(f.SupplierID))
	}
	if f.Range.Start != "" {
		where = append(where, "p.issue_date >= "+arg(f.Range.Start))
	}
	if f.Range.End != "" {
		where = append(where, "p.issue_date <= "+arg(f.Range.End))
	}
	sql := `SELECT ` + headerColumns + ` FROM purchase_invoices p LEFT JOIN suppliers s ON s.id = p.supplier_id`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY p.issue_date DESC, p.id DESC`
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		p, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePurchase removes the header; lines follow through the foreign key.
func (r *Repository) DeletePurchase(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_invoices WHERE id = $1`, id)
	if err != nil {
		return shared.TranslatePgError("delete purchase", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchases: purchase %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
