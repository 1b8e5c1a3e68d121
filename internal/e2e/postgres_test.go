//go:build integration

package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/expenses"
	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/invoices"
	"github.com/hesabyar/hesabyar/internal/partners"
	"github.com/hesabyar/hesabyar/internal/platform/db"
	"github.com/hesabyar/hesabyar/internal/purchases"
	"github.com/hesabyar/hesabyar/internal/reports"
	"github.com/hesabyar/hesabyar/internal/settlement"
	"github.com/hesabyar/hesabyar/internal/shared"
)

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("hesabyar_test"),
		tcpostgres.WithUsername("hesabyar"),
		tcpostgres.WithPassword("hesabyar"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := db.New(ctx, dsn, db.Options{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.EnsureSchema(ctx, pool))
	require.NoError(t, db.EnsureSchema(ctx, pool), "schema must apply twice")
	return pool
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestInvoiceLifecycleAgainstPostgres(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	today := func() shared.Date { return "1403/05/20" }

	partnersService := partners.NewService(partners.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool), inventory.ServiceConfig{})
	chequesService := cheques.NewService(cheques.NewRepository(pool))
	expensesService := expenses.NewService(expenses.NewRepository(pool))
	purchasesService := purchases.NewService(purchases.NewRepository(pool), partnersService, logger)
	invoicesService := invoices.NewService(invoices.NewRepository(pool), partnersService, inventoryService, chequesService,
		invoices.ServiceConfig{Logger: logger, Today: today})
	reportsService := reports.NewService(reports.NewRepository(pool), nil, reports.Config{Logger: logger})

	salesAccount, err := expensesService.CreateAccount(ctx, expenses.AccountInput{Name: "Sales", Type: expenses.AccountIncome})
	require.NoError(t, err)
	customerID, err := partnersService.CreateCustomer(ctx, partners.CustomerInput{Name: "Nava"})
	require.NoError(t, err)
	supplierID, err := partnersService.CreateSupplier(ctx, partners.SupplierInput{Name: "Pars"})
	require.NoError(t, err)
	productID, err := inventoryService.CreateProduct(ctx, inventory.ProductInput{Name: "Keyboard", UnitPrice: dec("1000"), AccountID: &salesAccount})
	require.NoError(t, err)

	_, err = purchasesService.Save(ctx, purchases.Input{
		SupplierID: supplierID,
		IssueDate:  "1403/05/01",
		Items: []purchases.ItemInput{
			{ProductID: &productID, Quantity: dec("5"), PurchasePrice: dec("700")},
			{ProductName: "Keyboard", Quantity: dec("5"), PurchasePrice: dec("900")},
		},
	})
	require.NoError(t, err)
	p, err := inventoryService.GetProduct(ctx, productID)
	require.NoError(t, err)
	assert.True(t, p.StockQuantity.Equal(dec("10")))
	assert.True(t, p.AveragePurchasePrice.Equal(dec("800")))

	result, err := invoicesService.Save(ctx, invoices.SaveInvoiceInput{
		CustomerID:    customerID,
		IssueDate:     "1403/05/10",
		PaymentMethod: invoices.PaymentCheque,
		Cheque:        &invoices.ChequeInfo{Number: "55120", Bank: "Melli", DueDate: "1403/05/25"},
		Settlement:    settlement.Intent{Kind: settlement.IntentPartial, Amount: dec("1000")},
		Items: []invoices.LineInput{{
			ProductID: &productID, Description: "Keyboard", Quantity: dec("2"),
			UnitPrice: dec("1000"), TaxPercent: dec("10"),
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, result.ChequeID)
	assert.True(t, result.Totals.GrandTotal.Equal(dec("2200")))
	assert.Equal(t, settlement.StatusPartiallyPaid, result.Invoice.Status)

	p, err = inventoryService.GetProduct(ctx, productID)
	require.NoError(t, err)
	assert.True(t, p.StockQuantity.Equal(dec("8")))

	_, err = invoicesService.Save(ctx, invoices.SaveInvoiceInput{
		CustomerID:    customerID,
		IssueDate:     "1403/05/10",
		PaymentMethod: invoices.PaymentCash,
		Items:         []invoices.LineInput{{ProductID: &productID, Description: "Keyboard", Quantity: dec("9"), UnitPrice: dec("1")}},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	b, err := invoicesService.RecordPayment(ctx, result.Invoice.ID, dec("5000"))
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusPaid, b.Status)
	assert.True(t, b.Paid.Equal(dec("2200")))

	_, err = expensesService.CreateExpense(ctx, expenses.Input{Description: "Rent", Amount: dec("100"), Date: "1403/05/12"})
	require.NoError(t, err)

	summary, err := reportsService.FinancialSummary(ctx, shared.DateRange{Start: "1403/05/01", End: "1403/05/31"})
	require.NoError(t, err)
	assert.True(t, summary.TotalRevenue.Equal(dec("2200")), summary.TotalRevenue.String())
	assert.True(t, summary.COGS.Equal(dec("1600")), summary.COGS.String())
	assert.True(t, summary.NetProfit.Equal(dec("500")), summary.NetProfit.String())
	require.Len(t, summary.RevenueByAccount, 1)
	assert.Equal(t, "Sales", summary.RevenueByAccount[0].AccountName)

	due, err := chequesService.DueBetween(ctx, shared.DateRange{Start: "1403/05/20", End: "1403/05/26"})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, fmt.Sprintf("INV-%d", result.Invoice.ID), due[0].Invoice)

	require.NoError(t, invoicesService.Delete(ctx, result.Invoice.ID, invoices.DeleteOptions{CascadeCheques: true}))
	_, err = invoicesService.Get(ctx, result.Invoice.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	due, err = chequesService.DueBetween(ctx, shared.DateRange{Start: "1403/05/20", End: "1403/05/26"})
	require.NoError(t, err)
	assert.Empty(t, due)
}
