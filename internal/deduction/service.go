// Package deduction runs a payroll deduction batch end to end: it gates the
// source folder, posts every workbook and archives the folder on success.
package deduction

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/payroll/internal/batch"
	"github.com/cleared-dev/payroll/internal/errorlog"
	"github.com/cleared-dev/payroll/internal/importer"
	"github.com/cleared-dev/payroll/internal/logger"
	"github.com/cleared-dev/payroll/internal/metrics"
	"github.com/cleared-dev/payroll/internal/model"
	"github.com/cleared-dev/payroll/internal/sheet"
)

// Options configures a Service.
type Options struct {
	HeaderRow     int
	ChunkSize     int
	PaymentMode   string
	RecordTimeout time.Duration

	// Archive moves processed files to the backup folder after a clean run.
	Archive bool

	PushgatewayURL string
	Job            string

	// ErrorLogDir receives upload-errors.csv; empty disables the log.
	ErrorLogDir string

	Output  io.Writer       // operator output; io.Discard when nil
	Formats *sheet.Registry // sheet.DefaultRegistry() when nil
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// Result summarizes one run.
type Result struct {
	RunID   string
	Files   []importer.FileInfo
	Outcome model.BatchOutcome
}

// Service runs deduction batches.
type Service struct {
	store batch.Store
	files *importer.Manager
	opts  Options
}

// NewService creates a Service posting to store the files managed by files.
func NewService(store batch.Store, files *importer.Manager, opts Options) *Service {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Formats == nil {
		opts.Formats = sheet.DefaultRegistry()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, files: files, opts: opts}
}

// Run posts every file in the source folder. Every payment of the run carries
// the same transaction timestamp. The temp folder is cleared whatever happens;
// files are archived only when the run completes without a batch-level error.
func (s *Service) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := logger.FromContext(ctx).With().Str("run_id", res.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	started := s.opts.Now()
	defer func() {
		if err := s.files.ClearTemp(); err != nil {
			log.Warn().Err(err).Msg("clearing temp folder")
		}
	}()

	files, err := s.files.Scan()
	if err != nil {
		return res, err
	}
	if err := s.files.Check(files); err != nil {
		return res, err
	}
	res.Files = files
	log.Info().Int("files", len(files)).Str("source", s.files.SourceDir()).Msg("starting payroll deduction run")

	runner := batch.NewRunner(s.store, batch.Options{
		PaymentMode:   s.opts.PaymentMode,
		RecordTimeout: s.opts.RecordTimeout,
		Progress:      batch.NewConsoleProgress(s.opts.Output),
		Metrics:       s.opts.Metrics,
	})

	for _, f := range files {
		out, err := s.runFile(ctx, runner, f, started)
		res.Outcome.Merge(out)
		if err != nil {
			batch.WriteReport(s.opts.Output, len(files), res.Outcome)
			s.logErrors(ctx, res, started)
			s.finish(ctx, started)
			return res, fmt.Errorf("%s: %w", f.Name, err)
		}
	}

	batch.WriteReport(s.opts.Output, len(files), res.Outcome)
	s.logErrors(ctx, res, started)

	if s.opts.Archive {
		if err := s.files.Archive(files); err != nil {
			s.finish(ctx, started)
			return res, err
		}
	}

	log.Info().
		Int("processed", res.Outcome.Processed).
		Int("errors", len(res.Outcome.Errors)).
		Bool("archived", s.opts.Archive).
		Msg("payroll deduction run finished")
	s.finish(ctx, started)
	return res, nil
}

func (s *Service) runFile(ctx context.Context, runner *batch.Runner, f importer.FileInfo, at time.Time) (model.BatchOutcome, error) {
	opts := sheet.Options{
		HeaderRow: s.opts.HeaderRow,
		ChunkSize: s.opts.ChunkSize,
		TempDir:   s.files.TempDir(),
	}
	wb, err := s.opts.Formats.Open(f.Path, opts)
	if err != nil {
		return model.BatchOutcome{}, err
	}
	src := sheet.NewSource(f.Name, wb, opts)
	defer src.Close()

	log := logger.FromContext(ctx)
	log.Debug().Str("file", f.Name).Int64("size", f.Size).Msg("posting file")
	return runner.Run(ctx, src, at)
}

func (s *Service) logErrors(ctx context.Context, res Result, at time.Time) {
	if s.opts.ErrorLogDir == "" {
		return
	}
	entries := errorlog.FromOutcome(at, res.RunID, res.Outcome.Errors)
	if err := errorlog.Append(s.opts.ErrorLogDir, entries); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("writing error log")
	}
}

// finish records run metrics and pushes them when a gateway is configured.
// A failed push is logged and does not fail the run.
func (s *Service) finish(ctx context.Context, started time.Time) {
	finished := s.opts.Now()
	s.opts.Metrics.ObserveRun(finished.Sub(started), finished)
	if s.opts.PushgatewayURL == "" {
		return
	}
	if err := s.opts.Metrics.Push(ctx, s.opts.PushgatewayURL, s.opts.Job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("metrics push failed")
	}
}
