// Package money computes invoice line and invoice level amounts.
//
// All arithmetic keeps full decimal precision. Rounding happens only in
// Round and Format, after every sum has been taken.
package money

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FeeKind selects how a fee value is interpreted.
type FeeKind string

const (
	// FeePercent is a percentage of the line's amount after discount.
	FeePercent FeeKind = "percent"
	// FeeFixed is an absolute amount added to the line.
	FeeFixed FeeKind = "amount"
)

// Valid reports whether k is a known fee kind.
func (k FeeKind) Valid() bool {
	return k == FeePercent || k == FeeFixed
}

// Fee is a named extra charge on a line.
type Fee struct {
	Name  string          `json:"name" validate:"required"`
	Kind  FeeKind         `json:"kind" validate:"required,oneof=percent amount"`
	Value decimal.Decimal `json:"value" validate:"dgte=0"`
}

// Amount resolves the fee against the post-discount base.
func (f Fee) Amount(netOfDiscount decimal.Decimal) decimal.Decimal {
	if f.Kind == FeeFixed {
		return f.Value
	}
	return netOfDiscount.Mul(f.Value).Div(hundred)
}

// Line holds the priced inputs of one invoice line.
type Line struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
	Fees            []Fee
}

// FeeAmount is a resolved fee on a computed line.
type FeeAmount struct {
	Name   string          `json:"name"`
	Kind   FeeKind         `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// LineTotals is the breakdown of one line.
type LineTotals struct {
	Gross          decimal.Decimal `json:"gross"`
	Discount       decimal.Decimal `json:"discount"`
	NetOfDiscount  decimal.Decimal `json:"net_of_discount"`
	Tax            decimal.Decimal `json:"tax"`
	Fees           []FeeAmount     `json:"fees"`
	ExtraFeesTotal decimal.Decimal `json:"extra_fees_total"`
	Final          decimal.Decimal `json:"final"`
}

// InvoiceTotals holds the column sums across lines.
type InvoiceTotals struct {
	Gross          decimal.Decimal `json:"gross"`
	Discount       decimal.Decimal `json:"discount"`
	NetOfDiscount  decimal.Decimal `json:"net_of_discount"`
	Tax            decimal.Decimal `json:"tax"`
	ExtraFeesTotal decimal.Decimal `json:"extra_fees_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Lines          []LineTotals    `json:"lines"`
}

// ComputeLine prices a line. Tax and percent fees are charged on the
// amount after discount, never on the gross.
func ComputeLine(l Line) LineTotals {
	gross := l.Quantity.Mul(l.UnitPrice)
	discount := gross.Mul(l.DiscountPercent).Div(hundred)
	net := gross.Sub(discount)
	tax := net.Mul(l.TaxPercent).Div(hundred)

	fees := make([]FeeAmount, 0, len(l.Fees))
	feesTotal := decimal.Zero
	for _, f := range l.Fees {
		amt := f.Amount(net)
		fees = append(fees, FeeAmount{Name: f.Name, Kind: f.Kind, Amount: amt})
		feesTotal = feesTotal.Add(amt)
	}

	return LineTotals{
		Gross:          gross,
		Discount:       discount,
		NetOfDiscount:  net,
		Tax:            tax,
		Fees:           fees,
		ExtraFeesTotal: feesTotal,
		Final:          net.Add(tax).Add(feesTotal),
	}
}

// ComputeInvoice prices every line and sums the columns.
func ComputeInvoice(lines []Line) InvoiceTotals {
	out := InvoiceTotals{
		Gross:          decimal.Zero,
		Discount:       decimal.Zero,
		NetOfDiscount:  decimal.Zero,
		Tax:            decimal.Zero,
		ExtraFeesTotal: decimal.Zero,
		GrandTotal:     decimal.Zero,
		Lines:          make([]LineTotals, 0, len(lines)),
	}
	for _, l := range lines {
		t := ComputeLine(l)
		out.Lines = append(out.Lines, t)
		out.Gross = out.Gross.Add(t.Gross)
		out.Discount = out.Discount.Add(t.Discount)
		out.NetOfDiscount = out.NetOfDiscount.Add(t.NetOfDiscount)
		out.Tax = out.Tax.Add(t.Tax)
		out.ExtraFeesTotal = out.ExtraFeesTotal.Add(t.ExtraFeesTotal)
		out.GrandTotal = out.GrandTotal.Add(t.Final)
	}
	return out
}

// Sum adds a list of amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
