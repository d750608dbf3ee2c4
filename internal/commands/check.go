package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payroll/internal/accounts"
	"github.com/cleared-dev/payroll/internal/importer"
	"github.com/cleared-dev/payroll/internal/logger"
	"github.com/cleared-dev/payroll/internal/sheet"
	"github.com/cleared-dev/payroll/internal/store"
	"github.com/cleared-dev/payroll/internal/store/inmemory"
)

func newCheckCommand(cfgPath *string) *cobra.Command {
	var accountsPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the database connection and the source folder without posting",
		Long: `Verify the database connection and read every workbook in the source folder
without posting.

With --accounts, the database is not contacted. Every row is instead resolved
against a card directory export (CSV with columns sno,cardno,cardname) and
rows that would fail account lookup are counted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), *cfgPath, accountsPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&accountsPath, "accounts", "", "card directory CSV export to resolve rows against offline")
	return cmd
}

func runCheck(ctx context.Context, cfgPath, accountsPath string, out io.Writer) error {
	cfg, log, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx, log)

	var resolver *accounts.Resolver
	if accountsPath != "" {
		dir, n, err := loadDirectory(accountsPath)
		if err != nil {
			fmt.Fprintf(out, "accounts: %v\n", err)
			return err
		}
		resolver = accounts.NewResolver(dir)
		fmt.Fprintf(out, "accounts: %d serial(s) from %s, database not contacted\n", n, accountsPath)
	} else {
		st, err := store.NewStore(ctx, cfg.Database.Source, store.Options{ConnectTimeout: cfg.Database.ConnectTimeout})
		if err != nil {
			fmt.Fprintf(out, "database: %v\n", err)
			return err
		}
		st.Close()
		fmt.Fprintln(out, "database: ok")
	}

	files := newFileManager(cfg)
	found, err := files.Scan()
	if err != nil {
		fmt.Fprintf(out, "source: %v\n", err)
		return err
	}
	if err := files.Check(found); err != nil {
		fmt.Fprintf(out, "source: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "source: %d file(s) in %s\n", len(found), files.SourceDir())

	opts := sheet.Options{
		HeaderRow: cfg.Import.HeaderRow,
		ChunkSize: cfg.Import.ChunkSize,
		TempDir:   cfg.Folders.Temp,
	}
	defer func() {
		if err := files.ClearTemp(); err != nil {
			log.Warn().Err(err).Msg("clearing temp folder")
		}
	}()
	for _, f := range found {
		sum, err := inspect(ctx, f, opts, resolver)
		if err != nil {
			fmt.Fprintf(out, "  %s: %v\n", f.Name, err)
			return err
		}
		fmt.Fprintf(out, "  %s: %d sheet(s), %d record(s), %d invalid", f.Name, sum.sheets, sum.records, sum.invalid)
		if resolver != nil {
			fmt.Fprintf(out, ", %d unresolved, %d ambiguous", sum.unresolved, sum.ambiguous)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// loadDirectory reads a card directory export into an in-memory store.
func loadDirectory(path string) (*inmemory.Store, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dir := inmemory.NewStore()
	n, err := dir.LoadAccounts(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return dir, n, nil
}

type fileSummary struct {
	sheets, records, invalid int
	unresolved, ambiguous    int
}

// inspect reads a workbook through the same source a run uses, without
// posting. A non-nil resolver also looks up the account of every valid row.
func inspect(ctx context.Context, f importer.FileInfo, opts sheet.Options, resolver *accounts.Resolver) (fileSummary, error) {
	var sum fileSummary
	wb, err := sheet.DefaultRegistry().Open(f.Path, opts)
	if err != nil {
		return sum, err
	}
	src := sheet.NewSource(f.Name, wb, opts)
	defer src.Close()

	for {
		page, err := src.NextPage()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, err
		}
		if page.First {
			sum.sheets++
		}
		for _, rec := range page.Records {
			sum.records++
			if rec.Err != nil {
				sum.invalid++
				continue
			}
			if resolver == nil {
				continue
			}
			_, err := resolver.Resolve(ctx, rec.Intent.CardNumber, rec.Intent.FullName)
			switch {
			case errors.Is(err, accounts.ErrNotFound):
				sum.unresolved++
			case errors.Is(err, accounts.ErrAmbiguous):
				sum.ambiguous++
			case err != nil:
				return sum, err
			}
		}
	}
}
