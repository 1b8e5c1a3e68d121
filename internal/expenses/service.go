package expenses

import (
	"context"
	"strings"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// RepositoryPort abstracts expense persistence.
type RepositoryPort interface {
	GetExpense(ctx context.Context, id int64) (Expense, error)
	ListExpenses(ctx context.Context, f Filter) ([]Expense, error)
	CreateExpense(ctx context.Context, in Input) (int64, error)
	UpdateExpense(ctx context.Context, id int64, in Input) error
	DeleteExpense(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (int64, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListAccounts(ctx context.Context, typ AccountType) ([]Account, error)
	CreateAccount(ctx context.Context, in AccountInput) (int64, error)
	UpdateAccount(ctx context.Context, id int64, in AccountInput) error
	DeleteAccount(ctx context.Context, id int64) error
}

// ChangeHook runs after a committed write that alters reported expense figures.
type ChangeHook func(ctx context.Context)

// Service validates expenses and their reference data.
type Service struct {
	repo  RepositoryPort
	hooks []ChangeHook
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// OnChange registers a hook run after expense and account writes.
func (s *Service) OnChange(h ChangeHook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) changed(ctx context.Context, err error) error {
	if err == nil {
		for _, h := range s.hooks {
			h(ctx)
		}
	}
	return err
}

func normalizeExpense(in *Input) error {
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	return shared.ValidateStruct(in)
}

func (s *Service) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// ListExpenses returns expenses in the optional date range and category.
func (s *Service) ListExpenses(ctx context.Context, f Filter) ([]Expense, error) {
	return s.repo.ListExpenses(ctx, f)
}

func (s *Service) CreateExpense(ctx context.Context, in Input) (int64, error) {
	if err := normalizeExpense(&in); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateExpense(ctx, in)
	return id, s.changed(ctx, shared.TranslatePgError("create expense", err))
}

func (s *Service) UpdateExpense(ctx context.Context, id int64, in Input) error {
	if err := normalizeExpense(&in); err != nil {
		return err
	}
	return s.changed(ctx, shared.TranslatePgError("update expense", s.repo.UpdateExpense(ctx, id, in)))
}

func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	return s.changed(ctx, s.repo.DeleteExpense(ctx, id))
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory adds a category; names are unique.
func (s *Service) CreateCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, shared.NewValidationError("name", "is required")
	}
	id, err := s.repo.CreateCategory(ctx, name)
	return id, shared.TranslatePgError("create category", err)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

// ListAccounts lists accounts, all of them when typ is empty.
func (s *Service) ListAccounts(ctx context.Context, typ AccountType) ([]Account, error) {
	if typ != "" && typ != AccountIncome && typ != AccountExpense {
		return nil, shared.NewValidationError("type", "must be income or expense")
	}
	return s.repo.ListAccounts(ctx, typ)
}

func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateAccount(ctx, in)
	return id, shared.TranslatePgError("create account", err)
}

func (s *Service) UpdateAccount(ctx context.Context, id int64, in AccountInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	return s.changed(ctx, shared.TranslatePgError("update account", s.repo.UpdateAccount(ctx, id, in)))
}

// DeleteAccount removes an account; products and expenses pointing at it become unassigned.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	return s.changed(ctx, s.repo.DeleteAccount(ctx, id))
}
