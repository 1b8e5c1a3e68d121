package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Product is a stocked item with its moving-average purchase cost.
type Product struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Unit                 string          `json:"unit"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	StockQuantity        decimal.Decimal `json:"stock_quantity"`
	AveragePurchasePrice decimal.Decimal `json:"average_purchase_price"`
	AccountID            *int64          `json:"account_id,omitempty"`
}

// StockValue is the carrying cost of the units on hand.
func (p Product) StockValue() decimal.Decimal {
	return p.StockQuantity.Mul(p.AveragePurchasePrice)
}

// ProductInput holds the catalog fields a user may edit. Stock and average
// cost are owned by receipts and sales.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=1000"`
	Unit        string          `json:"unit" validate:"max=50"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"dgte=0"`
	AccountID   *int64          `json:"account_id" validate:"omitempty,gt=0"`
}

// ReceiptInput records purchased units entering stock.
type ReceiptInput struct {
	Quantity decimal.Decimal `json:"quantity" validate:"dgt=0"`
	UnitCost decimal.Decimal `json:"unit_cost" validate:"dgte=0"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search string
	Limit  int
}

// Quote previews a sale against live stock.
type Quote struct {
	Product Product         `json:"product"`
	COGS    decimal.Decimal `json:"cogs"`
}

var (
	// ErrInvalidQuantity is returned for non-positive movement quantities.
	ErrInvalidQuantity = shared.NewValidationError("quantity", "must be greater than zero")
	// ErrInvalidUnitCost is returned for negative purchase costs.
	ErrInvalidUnitCost = shared.NewValidationError("unit_cost", "must not be negative")
)
