package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// Blend adds qty units bought at unitCost and recomputes the weighted average.
// A resulting stock of zero yields an average of zero.
func Blend(p Product, qty, unitCost decimal.Decimal) (Product, error) {
	if !qty.IsPositive() {
		return p, ErrInvalidQuantity
	}
	if unitCost.IsNegative() {
		return p, ErrInvalidUnitCost
	}
	newStock := p.StockQuantity.Add(qty)
	if newStock.IsZero() {
		p.StockQuantity = decimal.Zero
		p.AveragePurchasePrice = decimal.Zero
		return p, nil
	}
	totalCost := p.StockQuantity.Mul(p.AveragePurchasePrice).Add(qty.Mul(unitCost))
	p.StockQuantity = newStock
	p.AveragePurchasePrice = totalCost.Div(newStock)
	return p, nil
}

// Draw removes qty units at the current average cost. The average is unchanged.
func Draw(p Product, qty decimal.Decimal) (Product, decimal.Decimal, error) {
	if !qty.IsPositive() {
		return p, decimal.Zero, ErrInvalidQuantity
	}
	if qty.GreaterThan(p.StockQuantity) {
		return p, decimal.Zero, fmt.Errorf("%w: product %d has %s, requested %s",
			shared.ErrInsufficientStock, p.ID, p.StockQuantity, qty)
	}
	cogs := qty.Mul(p.AveragePurchasePrice)
	p.StockQuantity = p.StockQuantity.Sub(qty)
	return p, cogs, nil
}
