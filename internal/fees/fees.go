// Package fees stores reusable fee templates that seed invoice line fees.
package fees

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/money"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// Template is a named fee definition.
type Template struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Kind  money.FeeKind   `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// ToFee converts the template into a line fee.
func (t Template) ToFee() money.Fee {
	return money.Fee{Name: t.Name, Kind: t.Kind, Value: t.Value}
}

// Input is the payload for creating or editing a template.
type Input struct {
	Name  string          `json:"name" validate:"required,max=100"`
	Kind  money.FeeKind   `json:"kind" validate:"required,oneof=percent amount"`
	Value decimal.Decimal `json:"value" validate:"dgte=0"`
}

// RepositoryPort abstracts template persistence.
type RepositoryPort interface {
	List(ctx context.Context) ([]Template, error)
	Get(ctx context.Context, id int64) (Template, error)
	Create(ctx context.Context, in Input) (int64, error)
	Update(ctx context.Context, id int64, in Input) error
	Delete(ctx context.Context, id int64) error
}

// Service validates fee templates.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func normalize(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.Kind == money.FeePercent && in.Value.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewValidationError("value", "percent fee must be at most 100")
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Template, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Template, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new template. Names are unique.
func (s *Service) Create(ctx context.Context, in Input) (int64, error) {
	if err := normalize(&in); err != nil {
		return 0, err
	}
	id, err := s.repo.Create(ctx, in)
	return id, shared.TranslatePgError("create fee template", err)
}

func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	if err := normalize(&in); err != nil {
		return err
	}
	return shared.TranslatePgError("update fee template", s.repo.Update(ctx, id, in))
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Resolve expands template ids into fees, in the order given.
func (s *Service) Resolve(ctx context.Context, ids []int64) ([]money.Fee, error) {
	out := make([]money.Fee, 0, len(ids))
	for _, id := range ids {
		t, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t.ToFee())
	}
	return out, nil
}
