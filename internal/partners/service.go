package partners

import (
	"context"
	"fmt"
	"strings"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// RepositoryPort abstracts partner persistence.
type RepositoryPort interface {
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	ListCustomers(ctx context.Context, search string) ([]Customer, error)
	FindCustomerDuplicates(ctx context.Context, in CustomerInput, excludeID int64) ([]DuplicateMatch, error)
	CreateCustomer(ctx context.Context, in CustomerInput) (int64, error)
	UpdateCustomer(ctx context.Context, id int64, in CustomerInput) error
	DeleteCustomer(ctx context.Context, id int64) error

	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, in SupplierInput) (int64, error)
	UpdateSupplier(ctx context.Context, id int64, in SupplierInput) error
	DeleteSupplier(ctx context.Context, id int64) error
}

// Service manages customers and suppliers.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// DuplicateError lists existing customers that look like the one being saved.
type DuplicateError struct {
	Matches []DuplicateMatch
}

func (e *DuplicateError) Error() string {
	names := make([]string, 0, len(e.Matches))
	for _, m := range e.Matches {
		names = append(names, m.Name)
	}
	return fmt.Sprintf("similar customers exist: %s", strings.Join(names, ", "))
}

// Unwrap lets errors.Is match shared.ErrValidation.
func (e *DuplicateError) Unwrap() error { return shared.ErrValidation }

func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, search)
}

// CreateCustomer validates input and refuses likely duplicates unless AllowDuplicate is set.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (int64, error) {
	if err := s.checkCustomer(ctx, &in, 0); err != nil {
		return 0, err
	}
	return s.repo.CreateCustomer(ctx, in)
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) error {
	if err := s.checkCustomer(ctx, &in, id); err != nil {
		return err
	}
	return s.repo.UpdateCustomer(ctx, id, in)
}

func (s *Service) checkCustomer(ctx context.Context, in *CustomerInput, excludeID int64) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.AllowDuplicate {
		return nil
	}
	matches, err := s.repo.FindCustomerDuplicates(ctx, *in, excludeID)
	if err != nil {
		return err
	}
	if len(matches) > 0 {
		return &DuplicateError{Matches: matches}
	}
	return nil
}

// DeleteCustomer fails while the customer still has invoices.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return 0, err
	}
	return s.repo.CreateSupplier(ctx, in)
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	return s.repo.UpdateSupplier(ctx, id, in)
}

func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	return s.repo.DeleteSupplier(ctx, id)
}
