package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/invoices"
	"github.com/hesabyar/hesabyar/internal/money"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// RepositoryPort abstracts the reporting queries.
type RepositoryPort interface {
	InvoiceTotals(ctx context.Context, rng shared.DateRange) (revenue, cogs decimal.Decimal, err error)
	SoldLines(ctx context.Context, rng shared.DateRange) ([]SoldLine, error)
	ExpensesByAccount(ctx context.Context, rng shared.DateRange) ([]AccountTotal, error)
	InvoicesInRange(ctx context.Context, rng shared.DateRange) ([]InvoiceRow, error)
	ExpensesInRange(ctx context.Context, rng shared.DateRange) ([]ExpenseRow, error)
	Snapshot(ctx context.Context) (Snapshot, error)
	ExpensesByCategory(ctx context.Context) ([]CategoryTotal, error)
	DailySales(ctx context.Context, rng shared.DateRange) ([]DailySales, error)
}

// ChequeLister supplies the upcoming pending cheques.
type ChequeLister interface {
	Upcoming(ctx context.Context, limit int) ([]cheques.View, error)
}

// StockLister supplies products running low.
type StockLister interface {
	LowStock(ctx context.Context) ([]inventory.Product, error)
}

// OpenInvoiceLister supplies the latest unsettled invoices.
type OpenInvoiceLister interface {
	RecentOpen(ctx context.Context, limit int) ([]invoices.Invoice, error)
}

// Config wires the dashboard sources. Nil sources leave their section empty.
type Config struct {
	Cheques      ChequeLister
	Stock        StockLister
	OpenInvoices OpenInvoiceLister
	Logger       *slog.Logger
	// SalesDays is how many days, today included, the sales trend covers.
	SalesDays int
}

// Service builds financial reports.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	cfg   Config
}

// NewService wires a Repository with a Cache helper.
func NewService(repo RepositoryPort, cache *Cache, cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SalesDays <= 0 {
		cfg.SalesDays = 7
	}
	return &Service{repo: repo, cache: cache, cfg: cfg}
}

func requireRange(rng shared.DateRange) error {
	if rng.Start == "" || rng.End == "" {
		return shared.NewValidationError("range", "start and end are required")
	}
	if rng.End < rng.Start {
		return shared.NewValidationError("end", "end date is before start date")
	}
	return nil
}

// FinancialSummary reports revenue, COGS and profit for invoices and expenses dated in rng.
func (s *Service) FinancialSummary(ctx context.Context, rng shared.DateRange) (Summary, error) {
	if err := requireRange(rng); err != nil {
		return Summary{}, err
	}
	key, err := s.cache.BuildKey(ctx, summaryKey(rng.Start.String(), rng.End.String())...)
	if err != nil {
		s.cfg.Logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.loadSummary(ctx, rng)
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.loadSummary(ctx, rng)
	})
	if err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *Service) loadSummary(ctx context.Context, rng shared.DateRange) (Summary, error) {
	revenue, cogs, err := s.repo.InvoiceTotals(ctx, rng)
	if err != nil {
		return Summary{}, err
	}
	lines, err := s.repo.SoldLines(ctx, rng)
	if err != nil {
		return Summary{}, err
	}
	expenses, err := s.repo.ExpensesByAccount(ctx, rng)
	if err != nil {
		return Summary{}, err
	}
	if expenses == nil {
		expenses = []AccountTotal{}
	}
	opex := decimal.Zero
	for _, e := range expenses {
		opex = opex.Add(e.Total)
	}
	gross := revenue.Sub(cogs)
	return Summary{
		Start:             rng.Start,
		End:               rng.End,
		TotalRevenue:      revenue,
		COGS:              cogs,
		GrossProfit:       gross,
		OperatingExpenses: opex,
		NetProfit:         gross.Sub(opex),
		RevenueByAccount:  RevenueByAccount(lines),
		ExpensesByAccount: expenses,
	}, nil
}

// RevenueByAccount prices each line and groups the finals by product account.
// Named accounts come first in name order; the unassigned row is last.
func RevenueByAccount(lines []SoldLine) []AccountTotal {
	index := map[string]int{}
	out := []AccountTotal{}
	for _, l := range lines {
		key, name := UnassignedAccount, UnassignedAccount
		if l.AccountID != nil {
			key, name = fmt.Sprintf("#%d", *l.AccountID), l.AccountName
		}
		final := money.ComputeLine(l.Line).Final
		if i, ok := index[key]; ok {
			out[i].Total = out[i].Total.Add(final)
			continue
		}
		index[key] = len(out)
		out = append(out, AccountTotal{AccountID: l.AccountID, AccountName: name, Total: final})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].AccountID == nil) != (out[j].AccountID == nil) {
			return out[j].AccountID == nil
		}
		return out[i].AccountName < out[j].AccountName
	})
	return out
}

// GeneralJournal merges invoices and expenses dated in rng into one list ordered by date.
func (s *Service) GeneralJournal(ctx context.Context, rng shared.DateRange) ([]JournalEntry, error) {
	if err := requireRange(rng); err != nil {
		return nil, err
	}
	sales, err := s.repo.InvoicesInRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	spent, err := s.repo.ExpensesInRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	out := make([]JournalEntry, 0, len(sales)+len(spent))
	for _, inv := range sales {
		number := invoices.Invoice{ID: inv.ID}.Number()
		out = append(out, JournalEntry{
			Date:        inv.IssueDate,
			Kind:        EntryIncome,
			Description: "sale per invoice " + number,
			Reference:   number,
			Income:      inv.Total,
			Expense:     decimal.Zero,
		})
	}
	for _, e := range spent {
		out = append(out, JournalEntry{
			Date:        e.Date,
			Kind:        EntryExpense,
			Description: e.Description,
			Income:      decimal.Zero,
			Expense:     e.Amount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Dashboard collects the home screen figures as of today.
func (s *Service) Dashboard(ctx context.Context, today shared.Date) (Dashboard, error) {
	if _, err := shared.ParseDate(today.String()); err != nil {
		return Dashboard{}, err
	}
	out := Dashboard{Today: today, ExpensesByCategory: []CategoryTotal{}, RecentOpenInvoices: []OpenInvoice{},
		UpcomingCheques: []cheques.View{}, LowStock: []inventory.Product{}}

	var err error
	if out.SalesToday, _, err = s.repo.InvoiceTotals(ctx, shared.DateRange{Start: today, End: today}); err != nil {
		return Dashboard{}, err
	}
	if out.SalesThisMonth, _, err = s.repo.InvoiceTotals(ctx, today.MonthRange()); err != nil {
		return Dashboard{}, err
	}
	if out.SalesLastDays, err = s.salesTrend(ctx, today); err != nil {
		return Dashboard{}, err
	}
	if out.Snapshot, err = s.repo.Snapshot(ctx); err != nil {
		return Dashboard{}, err
	}
	categories, err := s.repo.ExpensesByCategory(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	if categories != nil {
		out.ExpensesByCategory = categories
	}

	if s.cfg.OpenInvoices != nil {
		open, err := s.cfg.OpenInvoices.RecentOpen(ctx, 5)
		if err != nil {
			return Dashboard{}, err
		}
		for _, inv := range open {
			out.RecentOpenInvoices = append(out.RecentOpenInvoices, OpenInvoice{
				ID:           inv.ID,
				Number:       inv.Number(),
				CustomerName: inv.CustomerName,
				IssueDate:    inv.IssueDate,
				Total:        inv.TotalAmount,
				Outstanding:  inv.Balance().Outstanding(),
			})
		}
	}
	if s.cfg.Cheques != nil {
		upcoming, err := s.cfg.Cheques.Upcoming(ctx, 5)
		if err != nil {
			return Dashboard{}, err
		}
		if upcoming != nil {
			out.UpcomingCheques = upcoming
		}
	}
	if s.cfg.Stock != nil {
		low, err := s.cfg.Stock.LowStock(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		if low != nil {
			out.LowStock = low
		}
	}
	return out, nil
}

// salesTrend returns one row per day ending today, oldest first, with zero
// for days without sales.
func (s *Service) salesTrend(ctx context.Context, today shared.Date) ([]DailySales, error) {
	first, err := today.AddDays(1 - s.cfg.SalesDays)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.DailySales(ctx, shared.DateRange{Start: first, End: today})
	if err != nil {
		return nil, err
	}
	byDay := make(map[shared.Date]decimal.Decimal, len(rows))
	for _, r := range rows {
		byDay[r.Date] = r.Total
	}
	out := make([]DailySales, 0, s.cfg.SalesDays)
	for i := 0; i < s.cfg.SalesDays; i++ {
		day, err := first.AddDays(i)
		if err != nil {
			return nil, err
		}
		total, ok := byDay[day]
		if !ok {
			total = decimal.Zero
		}
		out = append(out, DailySales{Date: day, Total: total})
	}
	return out, nil
}
