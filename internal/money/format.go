package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Round returns the display value: nearest whole currency unit, halves away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Formatter renders whole-unit amounts with locale grouping.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for the given BCP 47 tag, falling back to English.
func NewFormatter(tag string) *Formatter {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.English
	}
	return &Formatter{printer: message.NewPrinter(lang)}
}

// Format rounds d for display and groups thousands, e.g. 1234567.5 -> "1,234,568".
func (f *Formatter) Format(d decimal.Decimal) string {
	return f.printer.Sprintf("%d", Round(d).IntPart())
}

// Format uses the default English grouping.
func Format(d decimal.Decimal) string {
	return defaultFormatter.Format(d)
}

var defaultFormatter = NewFormatter("en")
