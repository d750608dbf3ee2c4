package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "payroll.yaml"

// Config represents the top-level payroll.yaml configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Folders  FoldersConfig  `yaml:"folders"`
	Import   ImportConfig   `yaml:"import"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig locates the payment store.
type DatabaseConfig struct {
	Source         string        `yaml:"source"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"` // per record
}

// FoldersConfig names the shared folders a run reads from and archives to.
type FoldersConfig struct {
	Source string `yaml:"source"`
	Backup string `yaml:"backup"`
	Temp   string `yaml:"temp"`
	Logs   string `yaml:"logs"` // upload-errors.csv is appended here
}

// ImportConfig controls spreadsheet parsing and posting.
type ImportConfig struct {
	HeaderRow         int      `yaml:"header_row"` // 1-based
	ChunkSize         int      `yaml:"chunk_size"`
	PaymentMode       string   `yaml:"payment_mode"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// MetricsConfig controls the pushgateway push at the end of a run.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url,omitempty"`
	Job            string `yaml:"job"`
}

// Load reads a payroll.yaml file from disk, fills defaults for omitted keys
// and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the values the deduction job has always used.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			ConnectTimeout: 10 * time.Second,
			QueryTimeout:   30 * time.Second,
		},
		Folders: FoldersConfig{
			Source: "payroll-deduction",
			Backup: "payroll-deduction-backup",
			Temp:   "tmp",
			Logs:   "logs",
		},
		Import: ImportConfig{
			HeaderRow:         7,
			ChunkSize:         1000,
			PaymentMode:       "Payroll Deduction",
			AllowedExtensions: []string{"xlsx", "xls"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Job: "payroll_deduction",
		},
	}
}

// ApplyEnv overrides file values with PAYROLL_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PAYROLL_DB_SOURCE"); v != "" {
		c.Database.Source = v
	}
	if v := getenv("PAYROLL_SOURCE_DIR"); v != "" {
		c.Folders.Source = v
	}
	if v := getenv("PAYROLL_BACKUP_DIR"); v != "" {
		c.Folders.Backup = v
	}
	if v := getenv("PAYROLL_PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
}

// ResolveFolders makes relative folder paths relative to base, normally the
// directory holding payroll.yaml.
func (c *Config) ResolveFolders(base string) {
	for _, p := range []*string{&c.Folders.Source, &c.Folders.Backup, &c.Folders.Temp, &c.Folders.Logs} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate checks the settings a run cannot do without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Source == "" {
		errs = append(errs, errors.New("database.source is required"))
	}
	if c.Folders.Source == "" {
		errs = append(errs, errors.New("folders.source is required"))
	}
	if c.Folders.Backup == "" {
		errs = append(errs, errors.New("folders.backup is required"))
	}
	if c.Import.HeaderRow < 1 {
		errs = append(errs, fmt.Errorf("import.header_row must be >= 1, got %d", c.Import.HeaderRow))
	}
	if c.Import.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("import.chunk_size must be >= 1, got %d", c.Import.ChunkSize))
	}
	if strings.TrimSpace(c.Import.PaymentMode) == "" {
		errs = append(errs, errors.New("import.payment_mode is required"))
	}
	if len(c.Import.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("import.allowed_extensions is empty"))
	}
	return errors.Join(errs...)
}
