package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/platform/db"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// TxRepository exposes the row-locking operations valuation needs inside a transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, id int64) (Product, error)
	GetProductByNameForUpdate(ctx context.Context, name string) (Product, error)
	UpdateStock(ctx context.Context, id int64, stock, avgCost decimal.Decimal) error
}

// Repository persists products in PostgreSQL.
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
		return fn(ctx, NewTxRepository(tx))
	})
}

const productColumns = `id, name, description, unit, unit_price, stock_quantity, average_purchase_price, account_id`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Unit, &p.UnitPrice, &p.StockQuantity, &p.AveragePurchasePrice, &p.AccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

// GetProduct loads a product by id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return Product{}, fmt.Errorf("inventory: product %d: %w", id, err)
	}
	return p, nil
}

// ListProducts returns products ordered by name, optionally filtered by a name search.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	sql := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		sql += ` WHERE name ILIKE $1 OR description ILIKE $1`
		args = append(args, "%"+s+"%")
	}
	args = append(args, limit)
	sql += fmt.Sprintf(` ORDER BY name LIMIT $%d`, len(args))
	return r.queryProducts(ctx, sql, args...)
}

// LowStock lists products with 0 < stock <= threshold, lowest first.
func (r *Repository) LowStock(ctx context.Context, threshold decimal.Decimal) ([]Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products
		WHERE stock_quantity <= $1 AND stock_quantity > 0 ORDER BY stock_quantity, name`, threshold)
}

func (r *Repository) queryProducts(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DistinctUnits returns the non-empty units in use.
func (r *Repository) DistinctUnits(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT unit FROM products WHERE unit <> '' ORDER BY unit`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// CreateProduct inserts a catalog entry with zero stock.
func (r *Repository) CreateProduct(ctx context.Context, in ProductInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, description, unit, unit_price, account_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		in.Name, in.Description, in.Unit, in.UnitPrice, in.AccountID).Scan(&id)
	if err != nil {
		return 0, shared.TranslatePgError("create product", err)
	}
	return id, nil
}

// UpdateProduct changes catalog fields only.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, in ProductInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name = $2, description = $3, unit = $4, unit_price = $5, account_id = $6
		WHERE id = $1`, id, in.Name, in.Description, in.Unit, in.UnitPrice, in.AccountID)
	if err != nil {
		return shared.TranslatePgError("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory: product %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// DeleteProduct removes a product; sold and purchased lines keep their text.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return shared.TranslatePgError("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory: product %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository binds the product row operations to an open transaction so
// other packages can move stock inside their own transactions.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Product{}, fmt.Errorf("inventory: product %d: %w", id, err)
	}
	return p, nil
}

func (r *txRepo) GetProductByNameForUpdate(ctx context.Context, name string) (Product, error) {
	p, err := scanProduct(r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1 FOR UPDATE`, name))
	if err != nil {
		return Product{}, fmt.Errorf("inventory: product %q: %w", name, err)
	}
	return p, nil
}

func (r *txRepo) UpdateStock(ctx context.Context, id int64, stock, avgCost decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock_quantity = $2, average_purchase_price = $3 WHERE id = $1`, id, stock, avgCost)
	if err != nil {
		return shared.TranslatePgError("update stock", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory: product %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
