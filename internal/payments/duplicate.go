package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payroll/internal/model"
)

// ErrDuplicate means the ledger already holds this payment.
var ErrDuplicate = errors.New("duplicate payment detected")

// DuplicateDetector decides whether a payment was already posted.
type DuplicateDetector struct {
	history History
}

// NewDuplicateDetector creates a detector over payment history.
func NewDuplicateDetector(h History) *DuplicateDetector {
	return &DuplicateDetector{history: h}
}

// IsDuplicate matches on the gross amount: amount plus whatever discount the
// same-day payment record for this reference carried (zero without one).
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, acct model.Account, ref string, on time.Time, amount decimal.Decimal) (bool, error) {
	discount := decimal.Zero
	rec, ok, err := d.history.PaymentRecord(ctx, acct.SerialNumber, ref, on)
	if err != nil {
		return false, fmt.Errorf("reading payment record: %w", err)
	}
	if ok {
		discount = rec.DiscountsApplied
	}

	n, err := d.history.CountLedgerPayments(ctx, acct.SerialNumber, ref, amount.Add(discount), on)
	if err != nil {
		return false, fmt.Errorf("reading ledger: %w", err)
	}
	return n > 0, nil
}
