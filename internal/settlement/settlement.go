// Package settlement tracks how much of an invoice has been paid.
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Status is the payment completeness of an invoice.
type Status string

const (
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
)

// Rank orders statuses for listings: unpaid first, paid last.
func (s Status) Rank() int {
	switch s {
	case StatusUnpaid:
		return 1
	case StatusPartiallyPaid:
		return 2
	case StatusPaid:
		return 3
	}
	return 4
}

// Open reports whether money is still owed.
func (s Status) Open() bool {
	return s == StatusUnpaid || s == StatusPartiallyPaid
}

// StatusFor derives the status from the total and the amount paid.
func StatusFor(total, paid decimal.Decimal) Status {
	switch {
	case !paid.IsPositive():
		return StatusUnpaid
	case paid.LessThan(total):
		return StatusPartiallyPaid
	default:
		return StatusPaid
	}
}

// Balance is the payment state of one invoice.
type Balance struct {
	Total  decimal.Decimal `json:"total"`
	Paid   decimal.Decimal `json:"paid"`
	Status Status          `json:"status"`
}

// Outstanding is the amount still owed.
func (b Balance) Outstanding() decimal.Decimal {
	return b.Total.Sub(b.Paid)
}

// ErrInvalidAmount rejects payments that are zero or negative.
var ErrInvalidAmount = shared.NewValidationError("amount", "payment must be greater than zero")

// Apply adds a payment, clamping the paid amount to the total. Overpayment is not kept as credit.
func Apply(current Balance, amount decimal.Decimal) (Balance, error) {
	if !amount.IsPositive() {
		return current, ErrInvalidAmount
	}
	paid := decimal.Min(current.Total, current.Paid.Add(amount))
	if paid.LessThan(current.Paid) {
		paid = current.Paid
	}
	return Balance{Total: current.Total, Paid: paid, Status: StatusFor(current.Total, paid)}, nil
}

// IntentKind is what the caller says about payment when an invoice is created.
type IntentKind string

const (
	IntentUnpaid  IntentKind = "unpaid"
	IntentPaid    IntentKind = "paid"
	IntentPartial IntentKind = "partial"
)

// Intent is the settlement chosen at save time.
type Intent struct {
	Kind   IntentKind      `json:"kind" validate:"required,oneof=unpaid paid partial"`
	Amount decimal.Decimal `json:"amount"`
}

// Initial resolves the opening balance of a new invoice.
func Initial(total decimal.Decimal, intent Intent) (Balance, error) {
	switch intent.Kind {
	case IntentUnpaid, "":
		return Balance{Total: total, Paid: decimal.Zero, Status: StatusFor(total, decimal.Zero)}, nil
	case IntentPaid:
		return Balance{Total: total, Paid: total, Status: StatusFor(total, total)}, nil
	case IntentPartial:
		if !intent.Amount.IsPositive() {
			return Balance{}, shared.NewValidationError("settlement.amount", "partial payment must be greater than zero")
		}
		if intent.Amount.GreaterThanOrEqual(total) {
			return Balance{}, shared.NewValidationError("settlement.amount", "partial payment must be less than the invoice total")
		}
		return Balance{Total: total, Paid: intent.Amount, Status: StatusPartiallyPaid}, nil
	}
	return Balance{}, shared.NewValidationError("settlement.kind", "must be one of unpaid, paid, partial")
}
