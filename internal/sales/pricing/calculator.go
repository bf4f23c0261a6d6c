package pricing

// Line is the pricing input for a single quotation line.
type Line struct {
	Quantity  float64
	UnitPrice float64
	Discount  Rate
	Tax       Rate
}

// LineTotals is the per-line breakdown produced by Calculate.
type LineTotals struct {
	LineTotal       float64
	DiscountPercent float64
	DiscountAmount  float64
	TaxableBase     float64
	TaxPercent      float64
	TaxAmount       float64
}

// Totals aggregates document amounts.
type Totals struct {
	Subtotal      float64
	DiscountTotal float64
	TaxAmount     float64
	TotalAmount   float64
	Lines         []LineTotals
}

// Calculate produces quotation totals from line items and header default
// rates. Tax applies per line to the discounted base, clamped at zero; the
// clamp is per line because override discount rates may differ between
// lines. No intermediate rounding.
func Calculate(lines []Line, headerDiscountPercent, headerTaxPercent float64) Totals {
	totals := Totals{Lines: make([]LineTotals, len(lines))}

	for i, line := range lines {
		lineTotal := line.Quantity * line.UnitPrice

		discountPercent := line.Discount.Resolve(headerDiscountPercent)
		discountAmount := lineTotal * discountPercent / 100

		taxableBase := lineTotal - discountAmount
		if taxableBase < 0 {
			taxableBase = 0
		}
		taxPercent := line.Tax.Resolve(headerTaxPercent)
		taxAmount := taxableBase * taxPercent / 100

		totals.Lines[i] = LineTotals{
			LineTotal:       lineTotal,
			DiscountPercent: discountPercent,
			DiscountAmount:  discountAmount,
			TaxableBase:     taxableBase,
			TaxPercent:      taxPercent,
			TaxAmount:       taxAmount,
		}

		totals.Subtotal += lineTotal
		totals.DiscountTotal += discountAmount
		totals.TaxAmount += taxAmount
	}

	net := totals.Subtotal - totals.DiscountTotal
	if net < 0 {
		net = 0
	}
	totals.TotalAmount = net + totals.TaxAmount

	return totals
}
