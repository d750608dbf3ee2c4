package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/payroll/internal/buildinfo"
	"github.com/cleared-dev/payroll/internal/config"
	"github.com/cleared-dev/payroll/internal/importer"
	"github.com/cleared-dev/payroll/internal/logger"
	"github.com/cleared-dev/payroll/internal/sheet"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:     "payroll",
		Short:   "Post payroll deduction spreadsheets as card payments",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "path to payroll.yaml")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newRunCommand(&cfgPath))
	rootCmd.AddCommand(newCheckCommand(&cfgPath))

	return rootCmd
}

// loadConfig reads and validates payroll.yaml and builds the logger it asks for.
// Relative folders are taken relative to the config file.
func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(absPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg.ResolveFolders(filepath.Dir(absPath))
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	formats := sheet.DefaultRegistry()
	for _, ext := range cfg.Import.AllowedExtensions {
		if formats.Get(ext) == nil {
			return nil, zerolog.Nop(), fmt.Errorf("invalid config %s: no reader for extension %q (supported: %s)",
				path, ext, strings.Join(formats.Extensions(), ", "))
		}
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid logging.level: %w", err)
	}
	return cfg, log.With().Str("version", buildinfo.Version).Str("commit", buildinfo.Commit).Logger(), nil
}

func newFileManager(cfg *config.Config) *importer.Manager {
	return importer.NewManager(cfg.Folders.Source, cfg.Folders.Backup, cfg.Folders.Temp, cfg.Import.AllowedExtensions)
}
