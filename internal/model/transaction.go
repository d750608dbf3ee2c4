package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrFormat marks input that does not satisfy the file contract.
var ErrFormat = errors.New("invalid file format")

// PaymentIntent is one parsed spreadsheet row requesting a deduction payment.
type PaymentIntent struct {
	CardNumber      string
	FullName        string
	Amount          decimal.Decimal
	ReferenceNumber string
	SheetOrdinal    int // 1 = non-confidential, 2 = confidential
}

// PaymentRecord is an existing row of payment history.
type PaymentRecord struct {
	SerialNumber     string
	ReferenceNumber  string
	TransactionDate  time.Time
	DiscountsApplied decimal.Decimal
}

// LedgerEntry is an existing row of the card ledger.
type LedgerEntry struct {
	SerialNumber    string
	ReferenceNumber string
	Remarks         string
	GrossAmount     decimal.Decimal
	TransactionDate time.Time
}

// IsPayment reports whether the entry's remarks mention a payment.
func (e LedgerEntry) IsPayment() bool {
	return strings.Contains(strings.ToLower(e.Remarks), "payment")
}

// DiscountScheduleEntry is one threshold/discount pair of a card's due-date schedule.
type DiscountScheduleEntry struct {
	CardNumber      string
	ThresholdAmount decimal.Decimal
	DiscountValue   decimal.Decimal
}

// Payment holds everything the store needs to post one payment atomically.
type Payment struct {
	SerialNumber    string
	CardNumber      string
	TransactionDate time.Time
	ReferenceNumber string
	Amount          decimal.Decimal
	Discount        decimal.Decimal
	POSID           *string // always nil for payroll deductions
	CashRegisterID  *string // always nil for payroll deductions
	PaymentMode     string
}

// Gross returns amount plus discount, the value the ledger records.
func (p Payment) Gross() decimal.Decimal {
	return p.Amount.Add(p.Discount)
}

// SameDay reports whether a and b fall on the same calendar date in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
