package expenses

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hesabyar/hesabyar/internal/shared"
)

type mockRepository struct {
	expenses   map[int64]Expense
	categories map[int64]Category
	accounts   map[int64]Account
	nextID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{expenses: map[int64]Expense{}, categories: map[int64]Category{}, accounts: map[int64]Account{}}
}

func (m *mockRepository) GetExpense(ctx context.Context, id int64) (Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return Expense{}, shared.ErrNotFound
	}
	return e, nil
}

func (m *mockRepository) ListExpenses(ctx context.Context, f Filter) ([]Expense, error) {
	var out []Expense
	for _, e := range m.expenses {
		if f.Range.Start != "" && e.Date < f.Range.Start || f.Range.End != "" && e.Date > f.Range.End {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockRepository) CreateExpense(ctx context.Context, in Input) (int64, error) {
	m.nextID++
	m.expenses[m.nextID] = Expense{ID: m.nextID, Description: in.Description, Amount: in.Amount, Date: in.Date, Category: in.Category, AccountID: in.AccountID}
	return m.nextID, nil
}

func (m *mockRepository) UpdateExpense(ctx context.Context, id int64, in Input) error {
	if _, ok := m.expenses[id]; !ok {
		return shared.ErrNotFound
	}
	m.expenses[id] = Expense{ID: id, Description: in.Description, Amount: in.Amount, Date: in.Date, Category: in.Category}
	return nil
}

func (m *mockRepository) DeleteExpense(ctx context.Context, id int64) error {
	delete(m.expenses, id)
	return nil
}

func (m *mockRepository) ListCategories(ctx context.Context) ([]Category, error) { return nil, nil }

func (m *mockRepository) CreateCategory(ctx context.Context, name string) (int64, error) {
	m.nextID++
	m.categories[m.nextID] = Category{ID: m.nextID, Name: name}
	return m.nextID, nil
}

func (m *mockRepository) DeleteCategory(ctx context.Context, id int64) error { return nil }

func (m *mockRepository) ListAccounts(ctx context.Context, typ AccountType) ([]Account, error) {
	var out []Account
	for _, a := range m.accounts {
		if typ == "" || a.Type == typ {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateAccount(ctx context.Context, in AccountInput) (int64, error) {
	m.nextID++
	m.accounts[m.nextID] = Account{ID: m.nextID, Name: in.Name, Type: in.Type}
	return m.nextID, nil
}

func (m *mockRepository) UpdateAccount(ctx context.Context, id int64, in AccountInput) error { return nil }

func (m *mockRepository) DeleteAccount(ctx context.Context, id int64) error { return nil }

func TestCreateExpense(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	var changes int
	svc.OnChange(func(context.Context) { changes++ })

	id, err := svc.CreateExpense(ctx, Input{Description: " rent ", Amount: decimal.NewFromInt(12000000), Date: "1403/02/01", Category: "office"})
	require.NoError(t, err)
	assert.Equal(t, "rent", repo.expenses[id].Description)
	assert.Equal(t, 1, changes)

	_, err = svc.CreateExpense(ctx, Input{Description: "x", Amount: decimal.NewFromInt(-1), Date: "1403/02/01"})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.CreateExpense(ctx, Input{Description: "x", Date: "1403/13/01"})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.CreateExpense(ctx, Input{Date: "1403/01/01"})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, 1, changes, "rejected writes run no hooks")

	require.NoError(t, svc.DeleteExpense(ctx, id))
	assert.Equal(t, 2, changes)
}

func TestAccountsAndCategories(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, AccountInput{Name: "Sales", Type: AccountIncome})
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, AccountInput{Name: "Rent", Type: AccountExpense})
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, AccountInput{Name: "Misc", Type: "asset"})
	require.ErrorIs(t, err, shared.ErrValidation)

	income, err := svc.ListAccounts(ctx, AccountIncome)
	require.NoError(t, err)
	require.Len(t, income, 1)
	assert.Equal(t, "Sales", income[0].Name)

	_, err = svc.ListAccounts(ctx, "liability")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateCategory(ctx, "   ")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListHandlerFiltersByRange(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	for _, d := range []shared.Date{"1403/01/05", "1403/02/05", "1403/03/05"} {
		_, err := svc.CreateExpense(ctx, Input{Description: "bill", Amount: decimal.NewFromInt(10), Date: d})
		require.NoError(t, err)
	}

	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/expenses", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses/?start=1403/02/01&end=1403/03/31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), `"description":"bill"`))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses/?start=1403/05/01&end=1403/01/01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
