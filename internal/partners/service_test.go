package partners

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hesabyar/hesabyar/internal/shared"
)

type mockRepository struct {
	customers map[int64]Customer
	suppliers map[int64]Supplier
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{customers: map[int64]Customer{}, suppliers: map[int64]Supplier{}}
}

func (m *mockRepository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockRepository) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	var out []Customer
	for _, c := range m.customers {
		if search == "" || strings.Contains(c.Name, search) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepository) FindCustomerDuplicates(ctx context.Context, in CustomerInput, excludeID int64) ([]DuplicateMatch, error) {
	var out []DuplicateMatch
	for _, c := range m.customers {
		if c.ID == excludeID {
			continue
		}
		if strings.EqualFold(c.Name, in.Name) || (in.Phone != "" && c.Phone == in.Phone) || (in.Email != "" && c.Email == in.Email) {
			out = append(out, DuplicateMatch{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone})
		}
	}
	return out, nil
}

func (m *mockRepository) CreateCustomer(ctx context.Context, in CustomerInput) (int64, error) {
	m.nextID++
	m.customers[m.nextID] = Customer{ID: m.nextID, Name: in.Name, Email: in.Email, Phone: in.Phone}
	return m.nextID, nil
}

func (m *mockRepository) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) error {
	if _, ok := m.customers[id]; !ok {
		return shared.ErrNotFound
	}
	m.customers[id] = Customer{ID: id, Name: in.Name, Email: in.Email, Phone: in.Phone}
	return nil
}

func (m *mockRepository) DeleteCustomer(ctx context.Context, id int64) error {
	delete(m.customers, id)
	return nil
}

func (m *mockRepository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) { return nil, nil }

func (m *mockRepository) CreateSupplier(ctx context.Context, in SupplierInput) (int64, error) {
	m.nextID++
	m.suppliers[m.nextID] = Supplier{ID: m.nextID, Name: in.Name}
	return m.nextID, nil
}

func (m *mockRepository) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) error {
	return nil
}

func (m *mockRepository) DeleteSupplier(ctx context.Context, id int64) error { return nil }

func TestCreateCustomerRejectsDuplicates(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	id, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Parsa Trading", Phone: "0912"})
	require.NoError(t, err)

	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "parsa trading"})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, id, dup.Matches[0].ID)

	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "Other", Phone: "0912", AllowDuplicate: true})
	require.NoError(t, err)
}

func TestUpdateCustomerIgnoresItself(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	id, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Nava", Email: "nava@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateCustomer(ctx, id, CustomerInput{Name: "Nava", Email: "nava@example.com", Phone: "021"}))
	assert.Equal(t, "021", repo.customers[id].Phone)
}

func TestCustomerValidation(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: " ", Email: "not-an-email"})
	var list shared.ValidationErrors
	require.True(t, errors.As(err, &list))
	assert.Len(t, list, 2)

	_, err = svc.CreateCustomer(context.Background(), CustomerInput{Name: "X", NationalID: "12a"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSupplierLifecycle(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateSupplier(ctx, SupplierInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	id, err := svc.CreateSupplier(ctx, SupplierInput{Name: "Kian Supply"})
	require.NoError(t, err)
	got, err := svc.GetSupplier(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Kian Supply", got.Name)

	_, err = svc.GetSupplier(ctx, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
