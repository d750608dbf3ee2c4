package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountCalculator picks the early-payment discount for a payment.
type DiscountCalculator struct {
	schedule Schedule
}

// NewDiscountCalculator creates a calculator over a schedule source.
func NewDiscountCalculator(s Schedule) *DiscountCalculator {
	return &DiscountCalculator{schedule: s}
}

// Compute returns the discount of the last schedule entry whose threshold does
// not exceed amount, or zero. With an ascending schedule that is the largest
// qualifying threshold.
func (c *DiscountCalculator) Compute(ctx context.Context, cardNumber string, amount decimal.Decimal, on time.Time) (decimal.Decimal, error) {
	entries, err := c.schedule.DiscountSchedule(ctx, cardNumber, on)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading discount schedule: %w", err)
	}

	discount := decimal.Zero
	for _, e := range entries {
		if e.ThresholdAmount.LessThanOrEqual(amount) {
			discount = e.DiscountValue
		}
	}
	if discount.IsNegative() {
		return decimal.Zero, nil
	}
	return discount, nil
}
