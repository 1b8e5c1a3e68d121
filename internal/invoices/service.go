package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/money"
	"github.com/hesabyar/hesabyar/internal/partners"
	"github.com/hesabyar/hesabyar/internal/settlement"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// Follow-up step names reported in shared.FollowUp.Step.
const (
	StepStock  = "stock_decrement"
	StepCOGS   = "cogs_capture"
	StepCheque = "cheque_create"
)

// RepositoryPort abstracts invoice persistence. It also provides the locked
// balance access settlement needs.
type RepositoryPort interface {
	settlement.RepositoryPort
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, f Filter) ([]Invoice, error)
	UpdateItemCOGS(ctx context.Context, invoiceID int64, lineNo int, cogs decimal.Decimal) error
	DeleteInvoice(ctx context.Context, id int64, cascadeCheques bool) (int64, error)
}

// TxRepository writes an invoice inside a transaction.
type TxRepository interface {
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertItems(ctx context.Context, invoiceID int64, items []LineItem) error
}

// CustomerLookup resolves the invoice's customer.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, id int64) (partners.Customer, error)
}

// StockPort is the inventory valuation the aggregate relies on.
type StockPort interface {
	Quote(ctx context.Context, productID int64, qty decimal.Decimal) (inventory.Quote, error)
	Consume(ctx context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error)
}

// ChequePort registers the cheque of a cheque-paid invoice.
type ChequePort interface {
	Create(ctx context.Context, in cheques.Input) (int64, error)
}

// FollowUpRecorder counts failed follow-ups by step.
type FollowUpRecorder interface {
	InvoiceSaved()
	FollowUpFailed(step string)
	PaymentRecorded()
}

// ServiceConfig carries optional collaborators.
type ServiceConfig struct {
	Logger    *slog.Logger
	Today     func() shared.Date
	Metrics   FollowUpRecorder
	Observers []EventHandler
}

// Service orchestrates invoice persistence.
type Service struct {
	repo      RepositoryPort
	customers CustomerLookup
	stock     StockPort
	cheques   ChequePort
	payments  *settlement.Service
	logger    *slog.Logger
	metrics   FollowUpRecorder
	observers []EventHandler
}

// NewService builds Service.
func NewService(repo RepositoryPort, customers CustomerLookup, stock StockPort, chequePort ChequePort, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Service{
		repo:      repo,
		customers: customers,
		stock:     stock,
		cheques:   chequePort,
		payments:  settlement.NewService(repo, cfg.Today),
		logger:    logger,
		metrics:   metrics,
		observers: cfg.Observers,
	}
}

// Subscribe adds an observer notified after committed writes.
func (s *Service) Subscribe(h EventHandler) {
	s.observers = append(s.observers, h)
}

// Preview prices a draft. Nothing is read or written.
func (s *Service) Preview(in PreviewInput) (money.InvoiceTotals, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return money.InvoiceTotals{}, err
	}
	lines := make([]money.Line, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, it.line())
	}
	return money.ComputeInvoice(lines), nil
}

// Save validates, prices and stores a new invoice, then runs the stock and
// cheque follow-ups. A non-nil result with a *shared.PartialFailure error
// means the invoice was stored but a follow-up needs manual attention.
func (s *Service) Save(ctx context.Context, in SaveInvoiceInput) (*SaveResult, error) {
	inv, totals, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return tx.InsertItems(ctx, id, inv.Items)
	})
	if err != nil {
		return nil, shared.TranslatePgError("save invoice", err)
	}
	s.metrics.InvoiceSaved()

	// The invoice is committed; follow-ups must not fail because the caller went away.
	followCtx := context.WithoutCancel(ctx)
	result := &SaveResult{Invoice: inv, Totals: totals}
	result.FollowUps = s.consumeStock(followCtx, &result.Invoice)
	if inv.PaymentMethod == PaymentCheque {
		chequeID, followUp := s.registerCheque(followCtx, inv)
		if followUp != nil {
			result.FollowUps = append(result.FollowUps, *followUp)
		} else {
			result.ChequeID = &chequeID
		}
	}

	for _, h := range s.observers {
		h.HandleInvoiceSaved(result.Invoice)
	}

	if len(result.FollowUps) > 0 {
		for _, f := range result.FollowUps {
			s.metrics.FollowUpFailed(f.Step)
			s.logger.Warn("invoice follow-up failed",
				slog.Int64("invoice_id", inv.ID),
				slog.String("step", f.Step),
				slog.Any("error", f.Err))
		}
		return result, &shared.PartialFailure{RecordID: inv.ID, FollowUps: result.FollowUps}
	}
	return result, nil
}

// prepare validates the draft against live data and builds the invoice to insert.
func (s *Service) prepare(ctx context.Context, in SaveInvoiceInput) (Invoice, money.InvoiceTotals, error) {
	in.normalize()
	if err := shared.ValidateStruct(in); err != nil {
		return Invoice{}, money.InvoiceTotals{}, err
	}
	switch {
	case in.PaymentMethod == PaymentCheque && in.Cheque == nil:
		return Invoice{}, money.InvoiceTotals{}, shared.NewValidationError("cheque", "is required for cheque payments")
	case in.PaymentMethod != PaymentCheque && in.Cheque != nil:
		return Invoice{}, money.InvoiceTotals{}, shared.NewValidationError("cheque", "is only allowed for cheque payments")
	}

	customer, err := s.customers.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return Invoice{}, money.InvoiceTotals{}, shared.TranslatePgError("load customer",
			fmt.Errorf("invoices: customer %d: %w", in.CustomerID, err))
	}

	avgCost, err := s.quoteStock(ctx, in.Items)
	if err != nil {
		return Invoice{}, money.InvoiceTotals{}, err
	}

	items := make([]LineItem, 0, len(in.Items))
	lines := make([]money.Line, 0, len(in.Items))
	for i, l := range in.Items {
		item := LineItem{
			LineNo:          i + 1,
			ProductID:       l.ProductID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			Unit:            l.Unit,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			TaxPercent:      l.TaxPercent,
			ExtraFees:       l.ExtraFees,
		}
		if item.ExtraFees == nil {
			item.ExtraFees = []money.Fee{}
		}
		if l.ProductID != nil {
			item.CostOfGoodSold = decimal.NewNullDecimal(l.Quantity.Mul(avgCost[*l.ProductID]))
		}
		items = append(items, item)
		lines = append(lines, l.line())
	}

	totals := money.ComputeInvoice(lines)
	balance, err := settlement.Initial(totals.GrandTotal, in.Settlement)
	if err != nil {
		return Invoice{}, money.InvoiceTotals{}, err
	}

	inv := Invoice{
		CustomerID:    in.CustomerID,
		CustomerName:  customer.Name,
		IssueDate:     in.IssueDate,
		Items:         items,
		TotalAmount:   balance.Total,
		Status:        balance.Status,
		AmountPaid:    balance.Paid,
		PaymentMethod: in.PaymentMethod,
		Cheque:        in.Cheque,
		Notes:         in.Notes,
	}
	if in.DueDate != "" {
		due := in.DueDate
		inv.DueDate = &due
	}
	if balance.Paid.IsPositive() {
		issue := in.IssueDate
		inv.PaymentDate = &issue
	}
	return inv, totals, nil
}

// quoteStock checks every inventory line against live stock, summing lines
// that sell the same product, and returns the average cost per product.
func (s *Service) quoteStock(ctx context.Context, items []LineInput) (map[int64]decimal.Decimal, error) {
	wanted := make(map[int64]decimal.Decimal)
	var order []int64
	for _, l := range items {
		if l.ProductID == nil {
			continue
		}
		id := *l.ProductID
		if _, seen := wanted[id]; !seen {
			order = append(order, id)
			wanted[id] = decimal.Zero
		}
		wanted[id] = wanted[id].Add(l.Quantity)
	}

	avgCost := make(map[int64]decimal.Decimal, len(wanted))
	for _, id := range order {
		q, err := s.stock.Quote(ctx, id, wanted[id])
		if err != nil {
			return nil, shared.TranslatePgError("quote stock", fmt.Errorf("invoices: product %d: %w", id, err))
		}
		avgCost[id] = q.Product.AveragePurchasePrice
	}
	return avgCost, nil
}

// consumeStock decrements stock for each inventory line of a committed
// invoice. The COGS actually drawn replaces the quoted one when they differ.
func (s *Service) consumeStock(ctx context.Context, inv *Invoice) []shared.FollowUp {
	var out []shared.FollowUp
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.ProductID == nil || !item.Quantity.IsPositive() {
			continue
		}
		cogs, err := s.stock.Consume(ctx, *item.ProductID, item.Quantity)
		if err != nil {
			out = append(out, shared.FollowUp{
				Step:      StepStock,
				ProductID: item.ProductID,
				Message:   fmt.Sprintf("stock for %q was not decremented: %s", item.Description, shared.UserSafeMessage(err)),
				Err:       err,
			})
			continue
		}
		if item.CostOfGoodSold.Valid && cogs.Equal(item.CostOfGoodSold.Decimal) {
			continue
		}
		if err := s.repo.UpdateItemCOGS(ctx, inv.ID, item.LineNo, cogs); err != nil {
			out = append(out, shared.FollowUp{
				Step:      StepCOGS,
				ProductID: item.ProductID,
				Message:   fmt.Sprintf("cost of goods for %q was not updated", item.Description),
				Err:       err,
			})
			continue
		}
		item.CostOfGoodSold = decimal.NewNullDecimal(cogs)
	}
	return out
}

func (s *Service) registerCheque(ctx context.Context, inv Invoice) (int64, *shared.FollowUp) {
	invoiceID := inv.ID
	id, err := s.cheques.Create(ctx, cheques.Input{
		Type:        cheques.TypeReceived,
		Number:      inv.Cheque.Number,
		BankName:    inv.Cheque.Bank,
		Amount:      inv.TotalAmount,
		IssueDate:   inv.IssueDate,
		DueDate:     inv.Cheque.DueDate,
		Status:      cheques.StatusPending,
		Description: fmt.Sprintf("for invoice %s", inv.Number()),
		InvoiceID:   &invoiceID,
	})
	if err != nil {
		return 0, &shared.FollowUp{
			Step:    StepCheque,
			Message: fmt.Sprintf("cheque %s was not registered: %s", inv.Cheque.Number, shared.UserSafeMessage(err)),
			Err:     err,
		}
	}
	return id, nil
}

// RecordPayment adds amount to the invoice's paid total.
func (s *Service) RecordPayment(ctx context.Context, id int64, amount decimal.Decimal) (settlement.Balance, error) {
	b, err := s.payments.ApplyPayment(ctx, id, amount)
	if err != nil {
		return settlement.Balance{}, shared.TranslatePgError("record payment", err)
	}
	s.metrics.PaymentRecorded()
	for _, h := range s.observers {
		h.HandlePaymentRecorded(id, b)
	}
	return b, nil
}

// Delete removes an invoice and its lines. Stock is not restored. Cheques
// are kept unless opts.CascadeCheques is set; kept cheques render their
// invoice as deleted.
func (s *Service) Delete(ctx context.Context, id int64, opts DeleteOptions) error {
	removed, err := s.repo.DeleteInvoice(ctx, id, opts.CascadeCheques)
	if err != nil {
		return shared.TranslatePgError("delete invoice", err)
	}
	s.logger.Info("invoice deleted", slog.Int64("invoice_id", id), slog.Int64("cheques_removed", removed))
	for _, h := range s.observers {
		h.HandleInvoiceDeleted(id)
	}
	return nil
}

// Get loads an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// Totals recomputes the breakdown of a stored invoice.
func (s *Service) Totals(ctx context.Context, id int64) (money.InvoiceTotals, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return money.InvoiceTotals{}, err
	}
	return money.ComputeInvoice(inv.Lines()), nil
}

// List returns invoice headers ordered unpaid, partially paid, paid, then
// newest issue date first.
func (s *Service) List(ctx context.Context, f Filter) ([]Invoice, error) {
	if f.Status != "" && f.Status != settlement.StatusUnpaid &&
		f.Status != settlement.StatusPartiallyPaid && f.Status != settlement.StatusPaid {
		return nil, shared.NewValidationError("status", "must be unpaid, partially_paid or paid")
	}
	list, err := s.repo.ListInvoices(ctx, f)
	if err != nil {
		return nil, err
	}
	SortForDisplay(list)
	return list, nil
}

// ListForCustomer returns a customer's invoices.
func (s *Service) ListForCustomer(ctx context.Context, customerID int64) ([]Invoice, error) {
	return s.List(ctx, Filter{CustomerID: customerID})
}

// RecentOpen returns the newest invoices still awaiting payment.
func (s *Service) RecentOpen(ctx context.Context, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 5
	}
	list, err := s.repo.ListInvoices(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IssueDate != list[j].IssueDate {
			return list[i].IssueDate > list[j].IssueDate
		}
		return list[i].ID > list[j].ID
	})
	out := make([]Invoice, 0, limit)
	for _, inv := range list {
		if !inv.Status.Open() {
			continue
		}
		out = append(out, inv)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// SortForDisplay orders by settlement rank, then issue date and id descending.
func SortForDisplay(list []Invoice) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		if a.IssueDate != b.IssueDate {
			return a.IssueDate > b.IssueDate
		}
		return a.ID > b.ID
	})
}

// IsPartialFailure reports whether err means the invoice was saved with follow-up failures.
func IsPartialFailure(err error) bool {
	return errors.Is(err, shared.ErrPartialFailure)
}

type noopRecorder struct{}

func (noopRecorder) InvoiceSaved() {}
func (noopRecorder) FollowUpFailed(string) {}
func (noopRecorder) PaymentRecorded() {}
