package fees

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Repository persists fee templates in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, kind, value FROM fee_templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Template])
}

func (r *Repository) Get(ctx context.Context, id int64) (Template, error) {
	var t Template
	err := r.pool.QueryRow(ctx, `SELECT id, name, kind, value FROM fee_templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Kind, &t.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, fmt.Errorf("fees: template %d: %w", id, shared.ErrNotFound)
	}
	return t, err
}

func (r *Repository) Create(ctx context.Context, in Input) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO fee_templates (name, kind, value) VALUES ($1, $2, $3) RETURNING id`,
		in.Name, in.Kind, in.Value).Scan(&id)
	return id, err
}

func (r *Repository) Update(ctx context.Context, id int64, in Input) error {
	tag, err := r.pool.Exec(ctx, `UPDATE fee_templates SET name = $2, kind = $3, value = $4 WHERE id = $1`,
		id, in.Name, in.Kind, in.Value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fees: template %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM fee_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fees: template %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
