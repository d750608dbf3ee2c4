package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payroll/internal/config"
)

func newInitCommand() *cobra.Command {
	var dbSource string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a payroll.yaml and create the deduction folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, dbSource, force)
		},
	}

	cmd.Flags().StringVar(&dbSource, "db", "", "PostgreSQL connection string (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing payroll.yaml")

	return cmd
}

func runInit(dir, dbSource string, force bool) error {
	cfgPath := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default()
	cfg.Database.Source = dbSource

	// Create the folders next to the config file.
	for _, d := range []string{cfg.Folders.Source, cfg.Folders.Backup, cfg.Folders.Temp, cfg.Folders.Logs} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Initialized payroll deduction job at %s\n", dir)
	return nil
}
