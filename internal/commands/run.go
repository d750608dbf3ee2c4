package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payroll/internal/deduction"
	"github.com/cleared-dev/payroll/internal/logger"
	"github.com/cleared-dev/payroll/internal/store"
)

func newRunCommand(cfgPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Post every workbook in the source folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDeduction(ctx, *cfgPath, dryRun, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "roll back every payment and leave the source folder untouched")

	return cmd
}

func runDeduction(ctx context.Context, cfgPath string, dryRun bool, out io.Writer) error {
	cfg, log, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx, log)

	// The database must be reachable before any file is touched.
	st, err := store.NewStore(ctx, cfg.Database.Source, store.Options{
		ConnectTimeout: cfg.Database.ConnectTimeout,
		DryRun:         dryRun,
	})
	if err != nil {
		log.Error().Err(err).Msg("database unavailable")
		return err
	}
	defer st.Close()

	svc := deduction.NewService(st, newFileManager(cfg), deduction.Options{
		HeaderRow:      cfg.Import.HeaderRow,
		ChunkSize:      cfg.Import.ChunkSize,
		PaymentMode:    cfg.Import.PaymentMode,
		RecordTimeout:  cfg.Database.QueryTimeout,
		Archive:        !dryRun,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		Job:            cfg.Metrics.Job,
		ErrorLogDir:    cfg.Folders.Logs,
		Output:         out,
	})

	res, err := svc.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("run_id", res.RunID).Msg("payroll deduction run failed")
		return err
	}
	if dryRun {
		fmt.Fprintln(out, "\n Dry run: nothing was committed and no files were moved.")
	}
	return nil
}
