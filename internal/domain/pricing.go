package domain

// Monetary amounts are int64 céntimos (S/ 90.00 == 9000) and percentage rates are int64
// basis points (25% == 2500). bpsScale converts between the two.
const bpsScale = 10_000

// ApplyRateBps multiplies an amount by a basis-point rate, rounding half up. Used for
// commission amounts and percentage promotion discounts.
func ApplyRateBps(amount, rateBps int64) int64 {
	product := amount * rateBps
	if product >= 0 {
		return (product + bpsScale/2) / bpsScale
	}
	return (product - bpsScale/2) / bpsScale
}

// SubtractRateBps returns amount reduced by a basis-point percentage, never below zero.
func SubtractRateBps(amount, rateBps int64) int64 {
	result := amount - ApplyRateBps(amount, rateBps)
	if result < 0 {
		return 0
	}
	return result
}

// LineSubtotal returns the pre-discount extended price for a line.
func (q PriceQuote) LineSubtotal(quantity int) int64 {
	return q.UnitPrice * int64(quantity)
}

// LineTotal returns the post-discount extended price for a line.
func (q PriceQuote) LineTotal(quantity int) int64 {
	return q.FinalPrice * int64(quantity)
}

// LineDiscount returns the discount given on a line, derived from the dual price
// snapshot rather than stored separately.
func (q PriceQuote) LineDiscount(quantity int) int64 {
	return q.LineSubtotal(quantity) - q.LineTotal(quantity)
}

// IsTerminal reports whether no further transitions are permitted from the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// Eligible reports whether the commission can still enter a payout pool. The delivered
// gate on the owning order is checked by the payout aggregator, not here.
func (c Commission) Eligible() bool {
	return c.Status == CommissionStatusValid && c.PayoutID == nil
}
