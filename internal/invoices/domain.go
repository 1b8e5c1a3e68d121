// Package invoices assembles, prices, persists and settles sales invoices.
//
// Saving an invoice commits the header and its lines in one transaction.
// Stock consumption and cheque registration run afterwards as independent
// follow-ups; their failures are reported through shared.PartialFailure and
// never undo the sale.
package invoices

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/money"
	"github.com/hesabyar/hesabyar/internal/settlement"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// PaymentMethod is how the customer settles the invoice.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// ChequeInfo is present on an invoice iff it is paid by cheque.
type ChequeInfo struct {
	Number  string      `json:"number" validate:"required,max=50"`
	Bank    string      `json:"bank" validate:"max=100"`
	DueDate shared.Date `json:"due_date" validate:"required,jdate"`
}

// LineItem is a persisted invoice line. ProductID is nil for service lines,
// which also carry no cost of goods sold.
type LineItem struct {
	LineNo          int                 `json:"line_no"`
	ProductID       *int64              `json:"product_id,omitempty"`
	Description     string              `json:"description"`
	Quantity        decimal.Decimal     `json:"quantity"`
	Unit            string              `json:"unit"`
	UnitPrice       decimal.Decimal     `json:"unit_price"`
	DiscountPercent decimal.Decimal     `json:"discount_percent"`
	TaxPercent      decimal.Decimal     `json:"tax_percent"`
	ExtraFees       []money.Fee         `json:"extra_fees"`
	CostOfGoodSold  decimal.NullDecimal `json:"cost_of_good_sold"`
}

// Line returns the priced inputs of the item.
func (l LineItem) Line() money.Line {
	return money.Line{
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		TaxPercent:      l.TaxPercent,
		Fees:            l.ExtraFees,
	}
}

// Invoice is a sales invoice with its lines.
type Invoice struct {
	ID            int64             `json:"id"`
	CustomerID    int64             `json:"customer_id"`
	CustomerName  string            `json:"customer_name,omitempty"`
	IssueDate     shared.Date       `json:"issue_date"`
	DueDate       *shared.Date      `json:"due_date,omitempty"`
	Items         []LineItem        `json:"items,omitempty"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Status        settlement.Status `json:"status"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Cheque        *ChequeInfo       `json:"cheque,omitempty"`
	PaymentDate   *shared.Date      `json:"payment_date,omitempty"`
	Notes         string            `json:"notes"`
}

// Number is the display number of the invoice.
func (i Invoice) Number() string {
	return fmt.Sprintf("INV-%d", i.ID)
}

// Balance returns the settlement view of the invoice.
func (i Invoice) Balance() settlement.Balance {
	return settlement.Balance{Total: i.TotalAmount, Paid: i.AmountPaid, Status: i.Status}
}

// Lines returns the priced inputs of every item, in order.
func (i Invoice) Lines() []money.Line {
	out := make([]money.Line, 0, len(i.Items))
	for _, it := range i.Items {
		out = append(out, it.Line())
	}
	return out
}

// COGS sums the captured cost of goods sold of the invoice's lines.
func (i Invoice) COGS() decimal.Decimal {
	total := decimal.Zero
	for _, it := range i.Items {
		if it.CostOfGoodSold.Valid {
			total = total.Add(it.CostOfGoodSold.Decimal)
		}
	}
	return total
}

// LineInput is one line of an invoice draft.
type LineInput struct {
	ProductID       *int64          `json:"product_id" validate:"omitempty,gt=0"`
	Description     string          `json:"description" validate:"required,max=500"`
	Quantity        decimal.Decimal `json:"quantity" validate:"dgte=0"`
	Unit            string          `json:"unit" validate:"max=50"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"dgte=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"dgte=0,dlte=100"`
	TaxPercent      decimal.Decimal `json:"tax_percent" validate:"dgte=0,dlte=100"`
	ExtraFees       []money.Fee     `json:"extra_fees" validate:"omitempty,dive"`
}

func (l LineInput) line() money.Line {
	return money.Line{
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		TaxPercent:      l.TaxPercent,
		Fees:            l.ExtraFees,
	}
}

// SaveInvoiceInput is an invoice draft together with the settlement intent.
type SaveInvoiceInput struct {
	CustomerID    int64             `json:"customer_id" validate:"required,gt=0"`
	IssueDate     shared.Date       `json:"issue_date" validate:"required,jdate"`
	DueDate       shared.Date       `json:"due_date" validate:"jdate"`
	Items         []LineInput       `json:"items" validate:"required,min=1,dive"`
	PaymentMethod PaymentMethod     `json:"payment_method" validate:"required,oneof=cash cheque bank_transfer"`
	Cheque        *ChequeInfo       `json:"cheque" validate:"omitempty"`
	Settlement    settlement.Intent `json:"settlement"`
	Notes         string            `json:"notes" validate:"max=2000"`
}

func (in *SaveInvoiceInput) normalize() {
	in.Notes = strings.TrimSpace(in.Notes)
	for i := range in.Items {
		in.Items[i].Description = strings.TrimSpace(in.Items[i].Description)
		in.Items[i].Unit = strings.TrimSpace(in.Items[i].Unit)
	}
	if in.Cheque != nil {
		in.Cheque.Number = strings.TrimSpace(in.Cheque.Number)
		in.Cheque.Bank = strings.TrimSpace(in.Cheque.Bank)
	}
	if in.Settlement.Kind == "" {
		in.Settlement.Kind = settlement.IntentUnpaid
	}
}

// PreviewInput prices a draft without touching storage.
type PreviewInput struct {
	Items []LineInput `json:"items" validate:"required,min=1,dive"`
}

// SaveResult is returned by Save. When follow-ups failed it is returned
// together with a *shared.PartialFailure error.
type SaveResult struct {
	Invoice   Invoice             `json:"invoice"`
	Totals    money.InvoiceTotals `json:"totals"`
	ChequeID  *int64              `json:"cheque_id,omitempty"`
	FollowUps []shared.FollowUp   `json:"follow_ups,omitempty"`
}

// DeleteOptions controls invoice deletion.
type DeleteOptions struct {
	// CascadeCheques also removes cheques referencing the invoice.
	CascadeCheques bool
}

// Filter narrows invoice listings. Search matches the customer name or an
// "INV-<id>" number.
type Filter struct {
	CustomerID int64
	Status     settlement.Status
	Search     string
	Range      shared.DateRange
	Limit      int
}

// EventHandler observes committed invoice writes.
type EventHandler interface {
	HandleInvoiceSaved(inv Invoice)
	HandleInvoiceDeleted(id int64)
	HandlePaymentRecorded(id int64, b settlement.Balance)
}
