package reports

import (
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/money"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// UnassignedAccount labels amounts whose product or expense has no account.
const UnassignedAccount = "unassigned"

// AccountTotal is one row of a per-account breakdown.
type AccountTotal struct {
	AccountID   *int64          `json:"account_id,omitempty"`
	AccountName string          `json:"account_name"`
	Total       decimal.Decimal `json:"total"`
}

// Summary is the profit and loss view of a date range.
type Summary struct {
	Start             shared.Date     `json:"start"`
	End               shared.Date     `json:"end"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	COGS              decimal.Decimal `json:"cogs"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses decimal.Decimal `json:"total_operational_expenses"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	RevenueByAccount  []AccountTotal  `json:"revenue_by_account"`
	ExpensesByAccount []AccountTotal  `json:"expenses_by_account"`
}

// SoldLine is an invoice line in range with the account of its product.
type SoldLine struct {
	AccountID   *int64
	AccountName string
	Line        money.Line
}

// InvoiceRow is the journal view of an invoice header.
type InvoiceRow struct {
	ID           int64
	IssueDate    shared.Date
	CustomerName string
	Total        decimal.Decimal
}

// ExpenseRow is the journal view of an expense.
type ExpenseRow struct {
	Date        shared.Date
	Description string
	Amount      decimal.Decimal
}

// EntryKind separates income and expense journal rows.
type EntryKind string

const (
	EntryIncome  EntryKind = "income"
	EntryExpense EntryKind = "expense"
)

// JournalEntry is one dated movement in the general journal.
type JournalEntry struct {
	Date        shared.Date     `json:"date"`
	Kind        EntryKind       `json:"type"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
}

// Snapshot holds all-time counters read in one round trip.
type Snapshot struct {
	Collected        decimal.Decimal `json:"total_income"`
	Receivables      decimal.Decimal `json:"total_receivables"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	InvoiceCount     int64           `json:"invoice_count"`
	OpenInvoiceCount int64           `json:"open_invoices_count"`
	AverageInvoice   decimal.Decimal `json:"avg_invoice_amount"`
	CustomerCount    int64           `json:"customer_count"`
	ProductCount     int64           `json:"product_count"`
}

// CategoryTotal sums expenses of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// DailySales is the invoiced total of one day.
type DailySales struct {
	Date  shared.Date     `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// OpenInvoice is a dashboard row for an unsettled invoice.
type OpenInvoice struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	CustomerName string          `json:"customer_name"`
	IssueDate    shared.Date     `json:"issue_date"`
	Total        decimal.Decimal `json:"total_amount"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// Dashboard gathers the home screen figures for one day.
type Dashboard struct {
	Today              shared.Date         `json:"today"`
	SalesToday         decimal.Decimal     `json:"sales_today"`
	SalesThisMonth     decimal.Decimal     `json:"sales_this_month"`
	SalesLastDays      []DailySales        `json:"sales_last_days"`
	Snapshot           Snapshot            `json:"snapshot"`
	ExpensesByCategory []CategoryTotal     `json:"expenses_by_category"`
	RecentOpenInvoices []OpenInvoice       `json:"recent_open_invoices"`
	UpcomingCheques    []cheques.View      `json:"upcoming_cheques"`
	LowStock           []inventory.Product `json:"low_stock"`
}
