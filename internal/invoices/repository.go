package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/money"
	"github.com/hesabyar/hesabyar/internal/platform/db"
	"github.com/hesabyar/hesabyar/internal/settlement"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// Repository persists invoices in PostgreSQL.
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
		return fn(ctx, &txRepo{tx: tx})
	})
}

// WithBalanceTx gives settlement locked access to one invoice's balance.
func (r *Repository) WithBalanceTx(ctx context.Context, fn func(context.Context, settlement.TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var chequeNumber, chequeBank, chequeDue *string
	if inv.Cheque != nil {
		number, bank, due := inv.Cheque.Number, inv.Cheque.Bank, inv.Cheque.DueDate.String()
		chequeNumber, chequeBank, chequeDue = &number, &bank, &due
	}
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (customer_id, issue_date, due_date, total_amount, status,
		amount_paid, payment_method, payment_date, cheque_number, cheque_bank, cheque_due_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		inv.CustomerID, inv.IssueDate, inv.DueDate, inv.TotalAmount, inv.Status,
		inv.AmountPaid, inv.PaymentMethod, inv.PaymentDate, chequeNumber, chequeBank, chequeDue, inv.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("invoices: insert header: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertItems(ctx context.Context, invoiceID int64, items []LineItem) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		fees, err := json.Marshal(it.ExtraFees)
		if err != nil {
			return fmt.Errorf("invoices: encode fees of line %d: %w", it.LineNo, err)
		}
		batch.Queue(`INSERT INTO invoice_items (invoice_id, line_no, product_id, description, quantity, unit,
			unit_price, discount_percent, tax_percent, extra_fees, cost_of_good_sold)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			invoiceID, it.LineNo, it.ProductID, it.Description, it.Quantity, it.Unit,
			it.UnitPrice, it.DiscountPercent, it.TaxPercent, string(fees), it.CostOfGoodSold)
	}
	results := r.tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("invoices: insert items: %w", err)
		}
	}
	return results.Close()
}

func (r *txRepo) GetBalanceForUpdate(ctx context.Context, invoiceID int64) (settlement.Balance, error) {
	var b settlement.Balance
	err := r.tx.QueryRow(ctx, `SELECT total_amount, amount_paid, status FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).
		Scan(&b.Total, &b.Paid, &b.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return settlement.Balance{}, shared.ErrNotFound
	}
	return b, err
}

func (r *txRepo) UpdatePayment(ctx context.Context, invoiceID int64, b settlement.Balance, paymentDate shared.Date) error {
	var date *shared.Date
	if paymentDate != "" {
		date = &paymentDate
	}
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET amount_paid = $2, status = $3,
		payment_date = COALESCE($4, payment_date) WHERE id = $1`, invoiceID, b.Paid, b.Status, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const headerColumns = `i.id, i.customer_id, COALESCE(c.name, ''), i.issue_date, i.due_date, i.total_amount,
	i.status, i.amount_paid, i.payment_method, i.payment_date, i.cheque_number, i.cheque_bank,
	i.cheque_due_date, i.notes`

func scanHeader(row pgx.Row) (Invoice, error) {
	var (
		inv                     Invoice
		number, bank, chequeDue *string
	)
	err := row.Scan(&inv.ID, &inv.CustomerID, &inv.CustomerName, &inv.IssueDate, &inv.DueDate, &inv.TotalAmount,
		&inv.Status, &inv.AmountPaid, &inv.PaymentMethod, &inv.PaymentDate, &number, &bank,
		&chequeDue, &inv.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.ErrNotFound
		}
		return Invoice{}, err
	}
	if number != nil {
		info := &ChequeInfo{Number: *number}
		if bank != nil {
			info.Bank = *bank
		}
		if chequeDue != nil {
			info.DueDate = shared.Date(*chequeDue)
		}
		inv.Cheque = info
	}
	return inv, nil
}

// GetInvoice loads a header and its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+`
		FROM invoices i LEFT JOIN customers c ON c.id = i.customer_id WHERE i.id = $1`, id))
	if err != nil {
		return Invoice{}, fmt.Errorf("invoices: invoice %d: %w", id, err)
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func (r *Repository) items(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT line_no, product_id, description, quantity, unit, unit_price,
		discount_percent, tax_percent, extra_fees, cost_of_good_sold
		FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LineItem
	for rows.Next() {
		var (
			it   LineItem
			fees []byte
		)
		if err := rows.Scan(&it.LineNo, &it.ProductID, &it.Description, &it.Quantity, &it.Unit, &it.UnitPrice,
			&it.DiscountPercent, &it.TaxPercent, &fees, &it.CostOfGoodSold); err != nil {
			return nil, err
		}
		it.ExtraFees = []money.Fee{}
		if len(fees) > 0 {
			if err := json.Unmarshal(fees, &it.ExtraFees); err != nil {
				return nil, fmt.Errorf("invoices: decode fees of line %d: %w", it.LineNo, err)
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListInvoices returns headers matching the filter, without lines.
func (r *Repository) ListInvoices(ctx context.Context, f Filter) ([]Invoice, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.CustomerID > 0 {
		where = append(where, "i.customer_id = "+arg(f.CustomerID))
	}
	if f.Status != "" {
		where = append(where, "i.status = "+arg(f.Status))
	}
	if f.Range.Start != "" {
		where = append(where, "i.issue_date >= "+arg(f.Range.Start))
	}
	if f.Range.End != "" {
		where = append(where, "i.issue_date <= "+arg(f.Range.End))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		cond := "c.name ILIKE " + arg("%"+s+"%")
		if id, ok := parseNumber(s); ok {
			cond += " OR i.id = " + arg(id)
		}
		where = append(where, "("+cond+")")
	}
	sql := `SELECT ` + headerColumns + ` FROM invoices i LEFT JOIN customers c ON c.id = i.customer_id`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY CASE i.status WHEN 'unpaid' THEN 0 WHEN 'partially_paid' THEN 1 ELSE 2 END,
		i.issue_date DESC, i.id DESC`
	if f.Limit > 0 {
		sql += ` LIMIT ` + arg(f.Limit)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// parseNumber accepts "INV-12", "inv-12" or "12".
func parseNumber(s string) (int64, bool) {
	s = strings.TrimPrefix(strings.ToUpper(s), "INV-")
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// UpdateItemCOGS stores the cost drawn from stock for one line.
func (r *Repository) UpdateItemCOGS(ctx context.Context, invoiceID int64, lineNo int, cogs decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoice_items SET cost_of_good_sold = $3
		WHERE invoice_id = $1 AND line_no = $2`, invoiceID, lineNo, cogs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoices: line %d of invoice %d: %w", lineNo, invoiceID, shared.ErrNotFound)
	}
	return nil
}

// DeleteInvoice removes the invoice; items go with it through the foreign key.
// It returns the number of cheques removed alongside.
func (r *Repository) DeleteInvoice(ctx context.Context, id int64, cascadeCheques bool) (int64, error) {
	var removed int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if cascadeCheques {
			tag, err := tx.Exec(ctx, `DELETE FROM cheques WHERE invoice_id = $1`, id)
			if err != nil {
				return err
			}
			removed = tag.RowsAffected()
		}
		tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("invoices: invoice %d: %w", id, shared.ErrNotFound)
		}
		return nil
	})
	return removed, err
}
