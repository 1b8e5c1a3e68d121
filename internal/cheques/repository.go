package cheques

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Repository persists cheques in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectCheque = `SELECT c.id, c.type, c.cheque_number, c.bank_name, c.amount, c.issue_date, c.due_date,
	c.status, c.description, c.invoice_id, (i.id IS NOT NULL)
	FROM cheques c LEFT JOIN invoices i ON i.id = c.invoice_id`

func scanCheque(row pgx.Row) (Cheque, error) {
	var c Cheque
	err := row.Scan(&c.ID, &c.Type, &c.Number, &c.BankName, &c.Amount, &c.IssueDate, &c.DueDate,
		&c.Status, &c.Description, &c.InvoiceID, &c.InvoiceExists)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cheque{}, shared.ErrNotFound
	}
	return c, err
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Cheque, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Cheque
	for rows.Next() {
		c, err := scanCheque(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Cheque, error) {
	c, err := scanCheque(r.pool.QueryRow(ctx, selectCheque+` WHERE c.id = $1`, id))
	if err != nil {
		return Cheque{}, fmt.Errorf("cheques: %d: %w", id, err)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, search string) ([]Cheque, error) {
	if s := strings.TrimSpace(search); s != "" {
		return r.query(ctx, selectCheque+` WHERE c.cheque_number ILIKE $1 OR c.description ILIKE $1 ORDER BY c.due_date`, "%"+s+"%")
	}
	return r.query(ctx, selectCheque+` ORDER BY c.due_date`)
}

func (r *Repository) ListPendingReceived(ctx context.Context, dueFrom, dueTo shared.Date, limit int) ([]Cheque, error) {
	return r.query(ctx, selectCheque+` WHERE c.type = 'received' AND c.status = 'pending'
		AND ($1 = '' OR c.due_date >= $1) AND ($2 = '' OR c.due_date <= $2)
		ORDER BY c.due_date LIMIT $3`, string(dueFrom), string(dueTo), limit)
}

func (r *Repository) Create(ctx context.Context, in Input) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO cheques (type, cheque_number, bank_name, amount, issue_date, due_date, status, description, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		in.Type, in.Number, in.BankName, in.Amount, in.IssueDate, in.DueDate, in.Status, in.Description, in.InvoiceID).Scan(&id)
	if err != nil {
		return 0, shared.TranslatePgError("create cheque", err)
	}
	return id, nil
}

// Update rewrites the editable fields; the invoice reference is kept.
func (r *Repository) Update(ctx context.Context, id int64, in Input) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cheques SET type = $2, cheque_number = $3, bank_name = $4, amount = $5,
		issue_date = $6, due_date = $7, status = $8, description = $9 WHERE id = $1`,
		id, in.Type, in.Number, in.BankName, in.Amount, in.IssueDate, in.DueDate, in.Status, in.Description)
	if err != nil {
		return shared.TranslatePgError("update cheque", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cheques: %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cheques WHERE id = $1`, id)
	if err != nil {
		return shared.TranslatePgError("delete cheque", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cheques: %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// DeleteForInvoice removes cheques tied to an invoice and reports how many went.
func (r *Repository) DeleteForInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cheques WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return 0, shared.TranslatePgError("delete invoice cheques", err)
	}
	return tag.RowsAffected(), nil
}
