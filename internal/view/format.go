// Package view holds presentation helpers shared by outbound documents.
package view

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders numbers for a fixed locale. Documents leave the system
// with a single locale applied; per-user locales are not supported.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for the given BCP 47 tag. Unparsable tags
// fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Amount renders a monetary amount with two fraction digits and locale
// grouping separators.
func (f *Formatter) Amount(v float64) string {
	return f.printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2)))
}

// Quantity renders a quantity, trimming trailing zeros.
func (f *Formatter) Quantity(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// Percent renders a rate such as 7.5 as "7.5%".
func (f *Formatter) Percent(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2))) + "%"
}
