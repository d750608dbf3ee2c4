package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cleared-dev/payroll/internal/accounts"
	"github.com/cleared-dev/payroll/internal/logger"
	"github.com/cleared-dev/payroll/internal/metrics"
	"github.com/cleared-dev/payroll/internal/model"
	"github.com/cleared-dev/payroll/internal/payments"
	"github.com/cleared-dev/payroll/internal/sheet"
)

// Operator-facing reasons recorded in the outcome.
const (
	ReasonNotFound  = "Serials not found"
	ReasonDuplicate = "Duplicate payment detected"
)

// Source yields pages of records; io.EOF ends the batch.
type Source interface {
	NextPage() (sheet.Page, error)
}

// Store is the payment store a run posts to.
type Store interface {
	accounts.Directory
	// Atomic runs fn as one unit of work serialized per key.
	Atomic(ctx context.Context, key string, fn func(payments.Ledger) error) error
}

// Options configures a Runner.
type Options struct {
	PaymentMode   string
	RecordTimeout time.Duration // zero means no per-record deadline
	Progress      Progress
	Metrics       *metrics.Recorder
}

// Runner posts every record of a source, one at a time, collecting
// per-record failures instead of stopping on them.
type Runner struct {
	store    Store
	resolver *accounts.Resolver
	opts     Options
}

// NewRunner creates a Runner over a store.
func NewRunner(store Store, opts Options) *Runner {
	if opts.Progress == nil {
		opts.Progress = NopProgress{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return &Runner{store: store, resolver: accounts.NewResolver(store), opts: opts}
}

// Run consumes src until it is exhausted. Every record is posted with the
// same transaction timestamp at. A format error from the source or a
// canceled context stops the run; the outcome gathered so far is returned
// with the error.
func (r *Runner) Run(ctx context.Context, src Source, at time.Time) (model.BatchOutcome, error) {
	log := logger.FromContext(ctx)
	var out model.BatchOutcome

	for {
		page, err := src.NextPage()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			if sheet.IsFormatError(err) {
				log.Error().Err(err).Msg("sheet rejected, stopping run")
			}
			return out, err
		}

		if page.First {
			log.Info().Str("file", page.File).Str("sheet", page.Sheet).Int("ordinal", page.Ordinal).Msg("posting sheet")
			r.opts.Progress.Sheet(sheet.Label(page.Ordinal))
		}
		r.opts.Progress.Page(len(page.Records))

		for _, rec := range page.Records {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			r.process(ctx, page, rec, at, &out)
		}

		if page.Last {
			r.opts.Progress.Done()
		}
	}
}

// process walks one record through resolve -> duplicate check -> discount ->
// apply, recording exactly one outcome.
func (r *Runner) process(ctx context.Context, page sheet.Page, rec sheet.Record, at time.Time, out *model.BatchOutcome) {
	log := logger.FromContext(ctx).With().
		Str("file", page.File).
		Str("sheet", page.Sheet).
		Int("row", rec.Row).
		Str("card_no", rec.Intent.CardNumber).
		Str("full_name", rec.Intent.FullName).
		Str("reference", rec.Intent.ReferenceNumber).
		Logger()

	fail := func(outcome, reason string, err error) {
		rowErr := model.RowError{
			File:       page.File,
			Sheet:      page.Sheet,
			Row:        rec.Row,
			CardNumber: rec.Intent.CardNumber,
			FullName:   rec.Intent.FullName,
			Reason:     reason,
		}
		out.Fail(rowErr)
		r.opts.Metrics.Intent(outcome)
		ev := log.Warn()
		if outcome == metrics.OutcomeFailed {
			ev = log.Error()
		}
		ev.Err(err).Str("outcome", outcome).Msg(reason)
	}

	if rec.Err != nil {
		fail(metrics.OutcomeInvalid, rec.Err.Error(), rec.Err)
		return
	}

	if r.opts.RecordTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RecordTimeout)
		defer cancel()
	}

	acct, err := r.resolver.Resolve(ctx, rec.Intent.CardNumber, rec.Intent.FullName)
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		fail(metrics.OutcomeUnresolved, ReasonNotFound, err)
		return
	case errors.Is(err, accounts.ErrAmbiguous):
		fail(metrics.OutcomeUnresolved, capitalize(err.Error()), err)
		return
	case err != nil:
		fail(metrics.OutcomeFailed, fmt.Sprintf("Account lookup failed: %v", err), err)
		return
	}

	var posted model.Payment
	err = r.store.Atomic(ctx, acct.SerialNumber, func(l payments.Ledger) error {
		var err error
		posted, err = payments.Post(ctx, l, r.opts.PaymentMode, acct, rec.Intent, at)
		return err
	})
	switch {
	case errors.Is(err, payments.ErrDuplicate):
		fail(metrics.OutcomeDuplicate, ReasonDuplicate, err)
		return
	case err != nil:
		fail(metrics.OutcomeFailed, fmt.Sprintf("Payment failed: %v", err), err)
		return
	}

	out.Applied()
	r.opts.Metrics.Intent(metrics.OutcomeApplied)
	r.opts.Progress.Advance()
	log.Debug().
		Str("serial", acct.SerialNumber).
		Str("amount", posted.Amount.StringFixed(2)).
		Str("discount", posted.Discount.StringFixed(2)).
		Msg("payment applied")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
