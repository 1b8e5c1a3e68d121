package partners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Repository persists partners in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, email, phone, address, national_id, economic_code, postal_code`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.NationalID, &c.EconomicCode, &c.PostalCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return Customer{}, fmt.Errorf("partners: customer %d: %w", id, err)
	}
	return c, nil
}

func (r *Repository) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	sql := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		sql += ` WHERE name ILIKE $1 OR national_id ILIKE $1`
		args = append(args, "%"+s+"%")
	}
	rows, err := r.pool.Query(ctx, sql+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) FindCustomerDuplicates(ctx context.Context, in CustomerInput, excludeID int64) ([]DuplicateMatch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, phone FROM customers
		WHERE (LOWER(name) = LOWER($1) OR ($2 <> '' AND email = $2) OR ($3 <> '' AND phone = $3))
		  AND id <> $4`, in.Name, in.Email, in.Phone, excludeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[DuplicateMatch])
}

func (r *Repository) CreateCustomer(ctx context.Context, in CustomerInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, email, phone, address, national_id, economic_code, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		in.Name, in.Email, in.Phone, in.Address, in.NationalID, in.EconomicCode, in.PostalCode).Scan(&id)
	if err != nil {
		return 0, shared.TranslatePgError("create customer", err)
	}
	return id, nil
}

func (r *Repository) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET name = $2, email = $3, phone = $4, address = $5,
		national_id = $6, economic_code = $7, postal_code = $8 WHERE id = $1`,
		id, in.Name, in.Email, in.Phone, in.Address, in.NationalID, in.EconomicCode, in.PostalCode)
	return affected(tag, err, "update customer", id)
}

func (r *Repository) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return &shared.PersistenceError{Op: "delete customer", Message: "customer has invoices; delete them first", Err: err}
	}
	return affected(tag, err, "delete customer", id)
}

const supplierColumns = `id, name, contact_person, email, phone, address, economic_code`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.EconomicCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if err != nil {
		return Supplier{}, fmt.Errorf("partners: supplier %d: %w", id, err)
	}
	return s, nil
}

func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) CreateSupplier(ctx context.Context, in SupplierInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, contact_person, email, phone, address, economic_code)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		in.Name, in.ContactPerson, in.Email, in.Phone, in.Address, in.EconomicCode).Scan(&id)
	if err != nil {
		return 0, shared.TranslatePgError("create supplier", err)
	}
	return id, nil
}

func (r *Repository) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET name = $2, contact_person = $3, email = $4, phone = $5,
		address = $6, economic_code = $7 WHERE id = $1`,
		id, in.Name, in.ContactPerson, in.Email, in.Phone, in.Address, in.EconomicCode)
	return affected(tag, err, "update supplier", id)
}

func (r *Repository) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	return affected(tag, err, "delete supplier", id)
}

func affected(tag pgconn.CommandTag, err error, op string, id int64) error {
	if err != nil {
		return shared.TranslatePgError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("partners: %s %d: %w", op, id, shared.ErrNotFound)
	}
	return nil
}
