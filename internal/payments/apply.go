package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payroll/internal/model"
)

// Applier posts payments with a fixed payment mode.
type Applier struct {
	writer Writer
	mode   string
}

// NewApplier creates an Applier. mode is the label stored on every payment,
// e.g. "Payroll Deduction".
func NewApplier(w Writer, mode string) *Applier {
	return &Applier{writer: w, mode: mode}
}

// Apply records the payment. POS and cash register are always empty for
// deductions.
func (a *Applier) Apply(ctx context.Context, acct model.Account, cardNumber string, on time.Time, ref string, amount, discount decimal.Decimal) (model.Payment, error) {
	p := model.Payment{
		SerialNumber:    acct.SerialNumber,
		CardNumber:      cardNumber,
		TransactionDate: on,
		ReferenceNumber: ref,
		Amount:          amount,
		Discount:        discount,
		PaymentMode:     a.mode,
	}
	if err := a.writer.ApplyPayment(ctx, p); err != nil {
		return model.Payment{}, fmt.Errorf("applying payment: %w", err)
	}
	return p, nil
}

// Post runs duplicate check, discount selection and application for one
// intent against a single ledger view. It returns ErrDuplicate without
// writing when the payment already exists.
func Post(ctx context.Context, l Ledger, mode string, acct model.Account, in model.PaymentIntent, on time.Time) (model.Payment, error) {
	dup, err := NewDuplicateDetector(l).IsDuplicate(ctx, acct, in.ReferenceNumber, on, in.Amount)
	if err != nil {
		return model.Payment{}, err
	}
	if dup {
		return model.Payment{}, ErrDuplicate
	}

	// Post against the resolved account's card; the sheet's card number may be
	// blank or stale when the account was matched by name.
	card := acct.CardNumber
	if card == "" {
		card = in.CardNumber
	}

	discount, err := NewDiscountCalculator(l).Compute(ctx, card, in.Amount, on)
	if err != nil {
		return model.Payment{}, err
	}

	return NewApplier(l, mode).Apply(ctx, acct, card, on, in.ReferenceNumber, in.Amount, discount)
}
