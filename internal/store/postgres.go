package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payroll/internal/model"
	"github.com/cleared-dev/payroll/internal/payments"
)

// ConnectivityError means the database could not be reached before a run.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return "database connection error: " + e.Err.Error()
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Options tunes the store.
type Options struct {
	ConnectTimeout time.Duration
	// DryRun rolls back every unit of work instead of committing it.
	DryRun bool
}

// Store is the PostgreSQL payment store.
type Store struct {
	db     *pgxpool.Pool
	dryRun bool
}

// NewStore connects and pings. Any failure is a *ConnectivityError.
func NewStore(ctx context.Context, connString string, opts Options) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, &ConnectivityError{Err: fmt.Errorf("unable to parse database config: %w", err)}
	}

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, &ConnectivityError{Err: fmt.Errorf("unable to create connection pool: %w", err)}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &ConnectivityError{Err: fmt.Errorf("unable to ping database: %w", err)}
	}

	return &Store{db: pool, dryRun: opts.DryRun}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.db.Close()
}

const accountColumns = "SELECT sno, cardno, cardname FROM rfid_serials"

// AccountsByCardNumber returns the serials carrying a card number.
func (s *Store) AccountsByCardNumber(ctx context.Context, cardNumber string) ([]model.Account, error) {
	return s.accounts(ctx, accountColumns+" WHERE cardno = $1 ORDER BY sno", cardNumber)
}

// AccountsByCardName returns the serials registered under a card name.
func (s *Store) AccountsByCardName(ctx context.Context, cardName string) ([]model.Account, error) {
	return s.accounts(ctx, accountColumns+" WHERE cardname = $1 ORDER BY sno", cardName)
}

func (s *Store) accounts(ctx context.Context, query, arg string) ([]model.Account, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		var cardNo, cardName *string
		if err := rows.Scan(&a.SerialNumber, &cardNo, &cardName); err != nil {
			return nil, err
		}
		if cardNo != nil {
			a.CardNumber = *cardNo
		}
		if cardName != nil {
			a.CardName = *cardName
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// maxAttempts bounds retries of a unit of work that lost a serialization or
// deadlock race. The whole transaction is replayed, so nothing is half-applied.
const maxAttempts = 2

// Atomic runs fn inside one READ COMMITTED transaction holding an advisory
// lock on key, so concurrent runs posting to the same account serialize.
func (s *Store) Atomic(ctx context.Context, key string, fn func(payments.Ledger) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.atomicOnce(ctx, key, fn)
		if !retryable(err) {
			return err
		}
	}
	return err
}

func (s *Store) atomicOnce(ctx context.Context, key string, fn func(payments.Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return fmt.Errorf("lock acquisition failed: %w", err)
	}

	if err := fn(&txLedger{tx: tx}); err != nil {
		return err
	}

	if s.dryRun {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}

// querier is the slice of pgx.Tx the ledger needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txLedger is the payments.Ledger view of one open transaction. The run
// timestamp is bound as timestamptz and cast to a date by the server, in the
// same session zone the stored timestamps are cast in.
type txLedger struct {
	tx querier
}

func (l *txLedger) PaymentRecord(ctx context.Context, serial, ref string, on time.Time) (model.PaymentRecord, bool, error) {
	var rec model.PaymentRecord
	err := l.tx.QueryRow(ctx,
		`SELECT sno, refno, transactiondate, COALESCE(discounts, 0)
		   FROM payments
		  WHERE sno = $1 AND refno = $2 AND transactiondate::date = $3::timestamptz::date
		  ORDER BY transactiondate
		  LIMIT 1`,
		serial, ref, on,
	).Scan(&rec.SerialNumber, &rec.ReferenceNumber, &rec.TransactionDate, &rec.DiscountsApplied)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PaymentRecord{}, false, nil
	}
	if err != nil {
		return model.PaymentRecord{}, false, err
	}
	return rec, true, nil
}

func (l *txLedger) CountLedgerPayments(ctx context.Context, serial, ref string, gross decimal.Decimal, on time.Time) (int, error) {
	var n int
	err := l.tx.QueryRow(ctx,
		`SELECT count(*)
		   FROM rfid_ledger
		  WHERE serial_no = $1 AND refno = $2
		    AND remarks ILIKE '%Payment%'
		    AND gross_amount = $3::numeric
		    AND transaction_date::date = $4::timestamptz::date`,
		serial, ref, gross.String(), on,
	).Scan(&n)
	return n, err
}

func (l *txLedger) DiscountSchedule(ctx context.Context, cardNumber string, asOf time.Time) ([]model.DiscountScheduleEntry, error) {
	rows, err := l.tx.Query(ctx,
		"SELECT amount, discount FROM ecpay_bill_due_date_discount($1, $2) ORDER BY amount",
		cardNumber, asOf,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DiscountScheduleEntry
	for rows.Next() {
		e := model.DiscountScheduleEntry{CardNumber: cardNumber}
		if err := rows.Scan(&e.ThresholdAmount, &e.DiscountValue); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ApplyPayment calls the stored procedure that inserts the payment and its
// ledger entry together.
func (l *txLedger) ApplyPayment(ctx context.Context, p model.Payment) error {
	_, err := l.tx.Exec(ctx,
		"CALL apply_payment_v2($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8)",
		p.CardNumber, p.TransactionDate, p.ReferenceNumber,
		p.Amount.String(), p.Discount.String(),
		p.POSID, p.CashRegisterID, p.PaymentMode,
	)
	if err != nil {
		return fmt.Errorf("calling apply_payment_v2: %w", err)
	}
	return nil
}
