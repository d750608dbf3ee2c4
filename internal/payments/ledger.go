// Package payments holds the per-record posting rules: duplicate detection,
// due-date discount selection and payment application.
package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payroll/internal/model"
)

// History reads prior payments and ledger entries. Dates compare by calendar
// day only.
type History interface {
	// PaymentRecord returns the payment for serial/ref dated on the given day.
	PaymentRecord(ctx context.Context, serial, ref string, on time.Time) (model.PaymentRecord, bool, error)
	// CountLedgerPayments counts ledger rows for serial/ref on the given day
	// whose remarks mention a payment and whose gross amount equals gross.
	CountLedgerPayments(ctx context.Context, serial, ref string, gross decimal.Decimal, on time.Time) (int, error)
}

// Schedule returns a card's due-date discount schedule, in the order the
// store defines (ascending threshold).
type Schedule interface {
	DiscountSchedule(ctx context.Context, cardNumber string, asOf time.Time) ([]model.DiscountScheduleEntry, error)
}

// Writer records a payment and its ledger entry as one atomic operation.
type Writer interface {
	ApplyPayment(ctx context.Context, p model.Payment) error
}

// Ledger is the view of the payment store one record's posting needs.
type Ledger interface {
	History
	Schedule
	Writer
}
