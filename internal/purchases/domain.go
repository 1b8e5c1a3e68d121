package purchases

import (
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Purchase is a supplier invoice whose lines were received into stock.
type Purchase struct {
	ID           int64           `json:"id"`
	SupplierID   *int64          `json:"supplier_id,omitempty"`
	SupplierName string          `json:"supplier_name"`
	IssueDate    shared.Date     `json:"issue_date"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Notes        string          `json:"notes"`
	Items        []Item          `json:"items,omitempty"`
}

// Item is one received line.
type Item struct {
	LineNo        int             `json:"line_no"`
	ProductID     *int64          `json:"product_id,omitempty"`
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

// Cost is quantity times purchase price.
func (it Item) Cost() decimal.Decimal {
	return it.Quantity.Mul(it.PurchasePrice)
}

// ItemInput identifies the product by id, or by its exact name when the id is absent.
type ItemInput struct {
	ProductID     *int64          `json:"product_id" validate:"omitempty,gt=0"`
	ProductName   string          `json:"product_name" validate:"required_without=ProductID,max=200"`
	Quantity      decimal.Decimal `json:"quantity" validate:"dgt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"dgte=0"`
}

// Input is the payload for saving a purchase.
type Input struct {
	SupplierID int64       `json:"supplier_id" validate:"required,gt=0"`
	IssueDate  shared.Date `json:"issue_date" validate:"required,jdate"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
	Notes      string      `json:"notes" validate:"max=2000"`
}

// Filter narrows purchase listings.
type Filter struct {
	SupplierID int64
	Range      shared.DateRange
}
