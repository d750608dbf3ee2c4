package inmemory

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payroll/internal/accounts"
	"github.com/cleared-dev/payroll/internal/model"
	"github.com/cleared-dev/payroll/internal/payments"
)

// Store is an in-memory payment store with the same contract as the
// PostgreSQL one. Units of work are serialized by a single mutex and staged
// writes are only kept when the unit succeeds.
type Store struct {
	mu        sync.Mutex
	accounts  []model.Account
	records   []model.PaymentRecord
	entries   []model.LedgerEntry
	schedules map[string][]model.DiscountScheduleEntry
	failApply func(model.Payment) error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{schedules: make(map[string][]model.DiscountScheduleEntry)}
}

// AddAccounts registers card serials.
func (s *Store) AddAccounts(accts ...model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, accts...)
}

// LoadAccounts registers the serials of a card directory CSV export and
// returns how many were read.
func (s *Store) LoadAccounts(r io.Reader) (int, error) {
	accts, err := accounts.ReadAccounts(r)
	if err != nil {
		return 0, fmt.Errorf("loading accounts: %w", err)
	}
	s.AddAccounts(accts...)
	return len(accts), nil
}

// SetSchedule replaces a card's discount schedule. Order is preserved.
func (s *Store) SetSchedule(cardNumber string, entries ...model.DiscountScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[cardNumber] = entries
}

// AddPaymentRecord seeds payment history.
func (s *Store) AddPaymentRecord(rec model.PaymentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// AddLedgerEntry seeds ledger history.
func (s *Store) AddLedgerEntry(e model.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// FailApply makes ApplyPayment return fn's error when it is non-nil.
func (s *Store) FailApply(fn func(model.Payment) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failApply = fn
}

// PaymentRecords returns a copy of the payment history.
func (s *Store) PaymentRecords() []model.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.PaymentRecord(nil), s.records...)
}

// LedgerEntries returns a copy of the ledger.
func (s *Store) LedgerEntries() []model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LedgerEntry(nil), s.entries...)
}

// AccountsByCardNumber implements accounts.Directory.
func (s *Store) AccountsByCardNumber(_ context.Context, cardNumber string) ([]model.Account, error) {
	return s.match(func(a model.Account) bool { return a.CardNumber == cardNumber }), nil
}

// AccountsByCardName implements accounts.Directory.
func (s *Store) AccountsByCardName(_ context.Context, cardName string) ([]model.Account, error) {
	return s.match(func(a model.Account) bool { return a.CardName == cardName }), nil
}

func (s *Store) match(pred func(model.Account) bool) []model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Account
	for _, a := range s.accounts {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

// Atomic runs fn with exclusive access. Writes staged by fn are committed
// only when fn returns nil.
func (s *Store) Atomic(ctx context.Context, _ string, fn func(payments.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txLedger{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.records = append(s.records, tx.records...)
	s.entries = append(s.entries, tx.entries...)
	return nil
}

// txLedger reads committed state plus its own staged writes.
type txLedger struct {
	s       *Store
	records []model.PaymentRecord
	entries []model.LedgerEntry
}

func (l *txLedger) PaymentRecord(_ context.Context, serial, ref string, on time.Time) (model.PaymentRecord, bool, error) {
	for _, set := range [][]model.PaymentRecord{l.s.records, l.records} {
		for _, r := range set {
			if r.SerialNumber == serial && r.ReferenceNumber == ref && model.SameDay(on, r.TransactionDate) {
				return r, true, nil
			}
		}
	}
	return model.PaymentRecord{}, false, nil
}

func (l *txLedger) CountLedgerPayments(_ context.Context, serial, ref string, gross decimal.Decimal, on time.Time) (int, error) {
	n := 0
	for _, set := range [][]model.LedgerEntry{l.s.entries, l.entries} {
		for _, e := range set {
			if e.SerialNumber == serial && e.ReferenceNumber == ref && e.IsPayment() &&
				e.GrossAmount.Equal(gross) && model.SameDay(on, e.TransactionDate) {
				n++
			}
		}
	}
	return n, nil
}

func (l *txLedger) DiscountSchedule(_ context.Context, cardNumber string, _ time.Time) ([]model.DiscountScheduleEntry, error) {
	return append([]model.DiscountScheduleEntry(nil), l.s.schedules[cardNumber]...), nil
}

// ApplyPayment stages the payment record and a ledger entry carrying the
// gross amount, mirroring apply_payment_v2.
func (l *txLedger) ApplyPayment(_ context.Context, p model.Payment) error {
	if l.s.failApply != nil {
		if err := l.s.failApply(p); err != nil {
			return err
		}
	}
	l.records = append(l.records, model.PaymentRecord{
		SerialNumber:     p.SerialNumber,
		ReferenceNumber:  p.ReferenceNumber,
		TransactionDate:  p.TransactionDate,
		DiscountsApplied: p.Discount,
	})
	l.entries = append(l.entries, model.LedgerEntry{
		SerialNumber:    p.SerialNumber,
		ReferenceNumber: p.ReferenceNumber,
		Remarks:         p.PaymentMode + " Payment",
		GrossAmount:     p.Gross(),
		TransactionDate: p.TransactionDate,
	})
	return nil
}
