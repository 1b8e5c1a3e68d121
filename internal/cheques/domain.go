// Package cheques keeps the register of received and issued cheques.
package cheques

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Type tells whether the business received or wrote the cheque.
type Type string

const (
	TypeReceived Type = "received"
	TypePaid     Type = "paid"
)

// Status is the clearing state of a cheque.
type Status string

const (
	StatusPending Status = "pending"
	StatusCleared Status = "cleared"
	StatusBounced Status = "bounced"
)

// DeletedInvoiceLabel is shown for a cheque whose invoice no longer exists.
const DeletedInvoiceLabel = "deleted"

// Cheque is a stored cheque. InvoiceID is a weak reference and may point at a deleted invoice.
type Cheque struct {
	ID            int64           `json:"id"`
	Type          Type            `json:"type"`
	Number        string          `json:"cheque_number"`
	BankName      string          `json:"bank_name"`
	Amount        decimal.Decimal `json:"amount"`
	IssueDate     shared.Date     `json:"issue_date"`
	DueDate       shared.Date     `json:"due_date"`
	Status        Status          `json:"status"`
	Description   string          `json:"description"`
	InvoiceID     *int64          `json:"invoice_id,omitempty"`
	InvoiceExists bool            `json:"-"`
}

// InvoiceLabel renders the back-reference for display.
func (c Cheque) InvoiceLabel() string {
	switch {
	case c.InvoiceID == nil:
		return ""
	case !c.InvoiceExists:
		return DeletedInvoiceLabel
	default:
		return fmt.Sprintf("INV-%d", *c.InvoiceID)
	}
}

// View is the display form of a cheque.
type View struct {
	Cheque
	Invoice string `json:"invoice"`
}

// NewView attaches the rendered invoice label.
func NewView(c Cheque) View {
	return View{Cheque: c, Invoice: c.InvoiceLabel()}
}

// Input holds the fields of a new or edited cheque.
type Input struct {
	Type        Type            `json:"type" validate:"required,oneof=received paid"`
	Number      string          `json:"cheque_number" validate:"required,max=50"`
	BankName    string          `json:"bank_name" validate:"max=100"`
	Amount      decimal.Decimal `json:"amount" validate:"dgt=0"`
	IssueDate   shared.Date     `json:"issue_date" validate:"required,jdate"`
	DueDate     shared.Date     `json:"due_date" validate:"required,jdate"`
	Status      Status          `json:"status" validate:"required,oneof=pending cleared bounced"`
	Description string          `json:"description" validate:"max=500"`
	InvoiceID   *int64          `json:"invoice_id" validate:"omitempty,gt=0"`
}
