package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/invoices"
	"github.com/hesabyar/hesabyar/internal/money"
	"github.com/hesabyar/hesabyar/internal/settlement"
	"github.com/hesabyar/hesabyar/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func int64p(v int64) *int64 { return &v }

type mockRepo struct {
	mu          sync.Mutex
	revenue     decimal.Decimal
	cogs        decimal.Decimal
	lines       []SoldLine
	expenses    []AccountTotal
	sales       []InvoiceRow
	spent       []ExpenseRow
	snapshot    Snapshot
	categories  []CategoryTotal
	daily       []DailySales
	totalsCalls int
	ranges      []shared.DateRange
}

func (m *mockRepo) InvoiceTotals(ctx context.Context, rng shared.DateRange) (decimal.Decimal, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalsCalls++
	m.ranges = append(m.ranges, rng)
	return m.revenue, m.cogs, nil
}

func (m *mockRepo) SoldLines(ctx context.Context, rng shared.DateRange) ([]SoldLine, error) {
	return m.lines, nil
}

func (m *mockRepo) ExpensesByAccount(ctx context.Context, rng shared.DateRange) ([]AccountTotal, error) {
	return m.expenses, nil
}

func (m *mockRepo) InvoicesInRange(ctx context.Context, rng shared.DateRange) ([]InvoiceRow, error) {
	return m.sales, nil
}

func (m *mockRepo) ExpensesInRange(ctx context.Context, rng shared.DateRange) ([]ExpenseRow, error) {
	return m.spent, nil
}

func (m *mockRepo) Snapshot(ctx context.Context) (Snapshot, error) { return m.snapshot, nil }

func (m *mockRepo) ExpensesByCategory(ctx context.Context) ([]CategoryTotal, error) {
	return m.categories, nil
}

func (m *mockRepo) DailySales(ctx context.Context, rng shared.DateRange) ([]DailySales, error) {
	return m.daily, nil
}

func (m *mockRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalsCalls
}

func exampleLine() money.Line {
	return money.Line{
		Quantity:        dec("2"),
		UnitPrice:       dec("1000"),
		DiscountPercent: dec("10"),
		TaxPercent:      dec("9"),
		Fees:            []money.Fee{{Name: "service", Kind: money.FeePercent, Value: dec("5")}},
	}
}

func newTestCache(t *testing.T) (*Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute, quietLogger()), client
}

// failCommand makes every command with the given name fail, except on the
// version counter key.
type failCommand struct{ name string }

func (f failCommand) DialHook(next redis.DialHook) redis.DialHook { return next }

func (f failCommand) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		if cmd.Name() == f.name && len(args) > 1 && args[1] != cacheVersionKey {
			err := errors.New("OOM command not allowed when used memory > 'maxmemory'")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (f failCommand) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func exampleRange() shared.DateRange {
	return shared.DateRange{Start: "1403/02/01", End: "1403/02/31"}
}

func TestFinancialSummaryCaches(t *testing.T) {
	repo := &mockRepo{
		revenue: dec("2052"),
		cogs:    dec("1200"),
		lines:   []SoldLine{{AccountID: int64p(1), AccountName: "Sales", Line: exampleLine()}},
		expenses: []AccountTotal{
			{AccountID: int64p(2), AccountName: "Rent", Total: dec("300")},
			{AccountName: UnassignedAccount, Total: dec("50")},
		},
	}
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache, Config{Logger: quietLogger()})
	ctx := context.Background()

	got, err := svc.FinancialSummary(ctx, exampleRange())
	require.NoError(t, err)
	assert.True(t, got.TotalRevenue.Equal(dec("2052")))
	assert.True(t, got.GrossProfit.Equal(dec("852")))
	assert.True(t, got.OperatingExpenses.Equal(dec("350")))
	assert.True(t, got.NetProfit.Equal(dec("502")), got.NetProfit.String())
	require.Len(t, got.RevenueByAccount, 1)
	assert.True(t, got.RevenueByAccount[0].Total.Equal(dec("2052")))
	require.Len(t, got.ExpensesByAccount, 2)

	_, err = svc.FinancialSummary(ctx, exampleRange())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls(), "second call served from cache")

	repo.revenue = dec("3000")
	NewInvalidator(cache, quietLogger()).HandlePaymentRecorded(1, settlement.Balance{})
	got, err = svc.FinancialSummary(ctx, exampleRange())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls())
	assert.True(t, got.TotalRevenue.Equal(dec("3000")))
}

func TestCatalogChangeEvictsCachedSummary(t *testing.T) {
	repo := &mockRepo{
		revenue: dec("2052"),
		lines:   []SoldLine{{AccountID: int64p(1), AccountName: "Sales", Line: exampleLine()}},
	}
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache, Config{Logger: quietLogger()})
	ctx := context.Background()

	got, err := svc.FinancialSummary(ctx, exampleRange())
	require.NoError(t, err)
	require.Len(t, got.RevenueByAccount, 1)
	assert.Equal(t, "Sales", got.RevenueByAccount[0].AccountName)

	repo.mu.Lock()
	repo.lines = []SoldLine{{AccountID: int64p(3), AccountName: "Services", Line: exampleLine()}}
	repo.mu.Unlock()
	NewInvalidator(cache, quietLogger()).CatalogChanged(ctx)

	got, err = svc.FinancialSummary(ctx, exampleRange())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls())
	require.Len(t, got.RevenueByAccount, 1)
	assert.Equal(t, "Services", got.RevenueByAccount[0].AccountName)
}

func TestFinancialSummaryEmptyAndInvalid(t *testing.T) {
	svc := NewService(&mockRepo{}, nil, Config{Logger: quietLogger()})
	ctx := context.Background()

	got, err := svc.FinancialSummary(ctx, exampleRange())
	require.NoError(t, err)
	assert.True(t, got.TotalRevenue.IsZero())
	assert.True(t, got.COGS.IsZero())
	assert.True(t, got.NetProfit.IsZero())
	assert.Empty(t, got.RevenueByAccount)
	assert.NotNil(t, got.ExpensesByAccount)

	_, err = svc.FinancialSummary(ctx, shared.DateRange{Start: "1403/02/01"})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.FinancialSummary(ctx, shared.DateRange{Start: "1403/03/01", End: "1403/02/01"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRevenueByAccountGroupsAndOrders(t *testing.T) {
	plain := money.Line{Quantity: dec("1"), UnitPrice: dec("100")}
	got := RevenueByAccount([]SoldLine{
		{Line: plain},
		{AccountID: int64p(5), AccountName: "Services", Line: plain},
		{AccountID: int64p(1), AccountName: "Goods", Line: exampleLine()},
		{AccountID: int64p(5), AccountName: "Services", Line: plain},
	})
	require.Len(t, got, 3)
	assert.Equal(t, "Goods", got[0].AccountName)
	assert.True(t, got[0].Total.Equal(dec("2052")))
	assert.Equal(t, "Services", got[1].AccountName)
	assert.True(t, got[1].Total.Equal(dec("200")))
	assert.Equal(t, UnassignedAccount, got[2].AccountName)
	assert.Nil(t, got[2].AccountID)
}

func TestGeneralJournalMergesByDate(t *testing.T) {
	repo := &mockRepo{
		sales: []InvoiceRow{
			{ID: 12, IssueDate: "1403/02/05", Total: dec("2052")},
			{ID: 13, IssueDate: "1403/02/20", Total: dec("500")},
		},
		spent: []ExpenseRow{{Date: "1403/02/10", Description: "rent", Amount: dec("300")}},
	}
	svc := NewService(repo, nil, Config{Logger: quietLogger()})

	got, err := svc.GeneralJournal(context.Background(), exampleRange())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "sale per invoice INV-12", got[0].Description)
	assert.Equal(t, EntryIncome, got[0].Kind)
	assert.True(t, got[0].Expense.IsZero())
	assert.Equal(t, EntryExpense, got[1].Kind)
	assert.True(t, got[1].Expense.Equal(dec("300")))
	assert.Equal(t, shared.Date("1403/02/20"), got[2].Date)
}

type fakeCheques []cheques.View

func (f fakeCheques) Upcoming(ctx context.Context, limit int) ([]cheques.View, error) { return f, nil }

type fakeStock []inventory.Product

func (f fakeStock) LowStock(ctx context.Context) ([]inventory.Product, error) { return f, nil }

type fakeOpen []invoices.Invoice

func (f fakeOpen) RecentOpen(ctx context.Context, limit int) ([]invoices.Invoice, error) {
	return f, nil
}

func TestDashboard(t *testing.T) {
	repo := &mockRepo{
		revenue:    dec("2052"),
		snapshot:   Snapshot{Receivables: dec("1052"), InvoiceCount: 1, OpenInvoiceCount: 1},
		categories: []CategoryTotal{{Category: "office", Total: dec("300")}},
		daily:      []DailySales{{Date: "1403/01/01", Total: dec("2052")}},
	}
	svc := NewService(repo, nil, Config{
		Logger:       quietLogger(),
		Cheques:      fakeCheques{{Cheque: cheques.Cheque{ID: 1, Number: "C-1", Amount: dec("1000")}}},
		Stock:        fakeStock{{ID: 1, Name: "widget", StockQuantity: dec("3")}},
		OpenInvoices: fakeOpen{{ID: 12, CustomerName: "Nava", TotalAmount: dec("2052"), AmountPaid: dec("1000"), Status: settlement.StatusPartiallyPaid}},
		SalesDays:    3,
	})

	got, err := svc.Dashboard(context.Background(), "1403/01/02")
	require.NoError(t, err)
	require.Len(t, repo.ranges, 2)
	assert.Equal(t, shared.DateRange{Start: "1403/01/02", End: "1403/01/02"}, repo.ranges[0])
	assert.Equal(t, shared.DateRange{Start: "1403/01/01", End: "1403/01/31"}, repo.ranges[1])

	require.Len(t, got.SalesLastDays, 3)
	assert.Equal(t, shared.Date("1402/12/29"), got.SalesLastDays[0].Date)
	assert.True(t, got.SalesLastDays[0].Total.IsZero())
	assert.True(t, got.SalesLastDays[1].Total.Equal(dec("2052")))
	assert.Equal(t, shared.Date("1403/01/02"), got.SalesLastDays[2].Date)

	require.Len(t, got.RecentOpenInvoices, 1)
	assert.Equal(t, "INV-12", got.RecentOpenInvoices[0].Number)
	assert.True(t, got.RecentOpenInvoices[0].Outstanding.Equal(dec("1052")))
	assert.Len(t, got.UpcomingCheques, 1)
	assert.Len(t, got.LowStock, 1)
	assert.Len(t, got.ExpensesByCategory, 1)

	_, err = svc.Dashboard(context.Background(), "soon")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestFinancialSummarySurvivesCacheFailures(t *testing.T) {
	for _, name := range []string{"set", "get"} {
		t.Run(name, func(t *testing.T) {
			repo := &mockRepo{revenue: dec("2052"), cogs: dec("1200")}
			cache, client := newTestCache(t)
			client.AddHook(failCommand{name: name})
			svc := NewService(repo, cache, Config{Logger: quietLogger()})

			got, err := svc.FinancialSummary(context.Background(), exampleRange())
			require.NoError(t, err)
			assert.True(t, got.TotalRevenue.Equal(dec("2052")))
			assert.True(t, got.GrossProfit.Equal(dec("852")))
			assert.Equal(t, 1, repo.calls())
		})
	}
}

func TestFetchJSONCollapsesConcurrentLoads(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	key, err := cache.BuildKey(ctx, "reports", "test")
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		loads   int
		release = make(chan struct{})
		wg      sync.WaitGroup
	)
	loader := func(context.Context) (any, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		<-release
		return map[string]string{"total": "10"}, nil
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out map[string]string
			assert.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
			assert.Equal(t, "10", out["total"])
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, 1, loads)
}

func TestVersionedKeys(t *testing.T) {
	cache, client := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, summaryKey("1403/01/01", "1403/01/31")...)
	require.NoError(t, err)
	assert.Equal(t, "reports:summary:1403/01/01:1403/01/31:v1", key)

	require.NoError(t, cache.Bump(ctx))
	key, err = cache.BuildKey(ctx, "reports", "x")
	require.NoError(t, err)
	assert.Equal(t, "reports:x:v2", key)

	require.NoError(t, client.Set(ctx, cacheVersionKey, 0, 0).Err())
	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)

	var nilCache *Cache
	key, err = nilCache.BuildKey(ctx, "reports", "x")
	require.NoError(t, err)
	assert.Equal(t, "reports:x", key)
}

func TestSummaryEndpoint(t *testing.T) {
	repo := &mockRepo{revenue: dec("2052"), cogs: dec("1200")}
	svc := NewService(repo, nil, Config{Logger: quietLogger()})
	h := NewHandler(quietLogger(), svc, func() shared.Date { return "1403/01/02" })
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/summary?start=1403/01/01&end=1403/01/31", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"gross_profit":"852"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/summary?start=1403/01/01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"today":"1403/01/02"`)
}
