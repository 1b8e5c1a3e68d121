package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/hesabyar/hesabyar/internal/invoices"
	"github.com/hesabyar/hesabyar/internal/settlement"
)

// Invalidator bumps the report cache version after writes that change
// reported figures.
type Invalidator struct {
	cache   *Cache
	logger  *slog.Logger
	timeout time.Duration
}

// NewInvalidator constructs Invalidator.
func NewInvalidator(cache *Cache, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{cache: cache, logger: logger, timeout: 2 * time.Second}
}

func (i *Invalidator) HandleInvoiceSaved(inv invoices.Invoice) { i.bump("invoice_saved") }

func (i *Invalidator) HandleInvoiceDeleted(id int64) { i.bump("invoice_deleted") }

func (i *Invalidator) HandlePaymentRecorded(id int64, b settlement.Balance) {
	i.bump("payment_recorded")
}

// ExpensesChanged is registered as the expenses change hook.
func (i *Invalidator) ExpensesChanged(ctx context.Context) {
	i.bumpWith(ctx, "expenses_changed")
}

// CatalogChanged is registered as the inventory change hook. Revenue is
// grouped by the account of each sold product.
func (i *Invalidator) CatalogChanged(ctx context.Context) {
	i.bumpWith(ctx, "catalog_changed")
}

func (i *Invalidator) bump(reason string) {
	i.bumpWith(context.Background(), reason)
}

func (i *Invalidator) bumpWith(ctx context.Context, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()
	if err := i.cache.Bump(ctx); err != nil {
		i.logger.Warn("report cache bump failed", slog.String("reason", reason), slog.Any("error", err))
	}
}

var _ invoices.EventHandler = (*Invalidator)(nil)
