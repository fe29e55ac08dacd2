// Package config handles loading the run configuration from the
// environment (populated from .env in main.go) and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/BartekS5/crashclean/pkg/database"
)

// EnvPrefix prefixes every environment variable, e.g. CRASHCLEAN_CLEAN_CUTOFF_YEAR.
const EnvPrefix = "CRASHCLEAN"

const isoDate = "2006-01-02"

// Configuration errors.
var (
	ErrInvalidTable      = errors.New("table name must be a plain SQL identifier")
	ErrInvalidCutoffYear = errors.New("clean.cutoff_year must be between 1900 and 2099")
	ErrInvalidDateRange  = errors.New("validate.date_min must not be after validate.date_max")
	ErrSameSourceAndDest = errors.New("source and destination must not be the same table")
	ErrInvalidBatchSize  = errors.New("clean.batch_size must be between 1 and 100")
	ErrInvalidDateBound  = errors.New("validate date bounds must be YYYY-MM-DD")
)

// Config holds all configuration for one cleaning/validation run.
type Config struct {
	Source      StoreConfig     `yaml:"source" envconfig:"SOURCE"`
	Destination StoreConfig     `yaml:"destination" envconfig:"DESTINATION"`
	Clean       CleanOptions    `yaml:"clean" envconfig:"CLEAN"`
	Validation  ValidateOptions `yaml:"validate" envconfig:"VALIDATE"`
	Output      OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Logging     LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`

	MongoConnString string `yaml:"mongo_connection_string" envconfig:"MONGO_CONNECTION_STRING"`
}

// StoreConfig points at one relational table.
type StoreConfig struct {
	Driver string `yaml:"driver" split_words:"true" validate:"oneof=sqlite3 sqlserver postgres"`
	DSN    string `yaml:"dsn" split_words:"true" validate:"required"`
	Table  string `yaml:"table" split_words:"true" validate:"required"`
}

// CleanOptions configures the cleaning pipeline.
type CleanOptions struct {
	// CutoffYear is the last year present in the dataset. Two-digit years
	// that would land after it are moved back one century.
	CutoffYear int  `yaml:"cutoff_year" split_words:"true" default:"2018"`
	BatchSize  int  `yaml:"batch_size" split_words:"true" default:"100"`
	Overwrite  bool `yaml:"overwrite" split_words:"true" default:"true"`
	DryRun     bool `yaml:"dry_run" split_words:"true"`
}

// ValidateOptions configures the validator.
type ValidateOptions struct {
	DateMin   string `yaml:"date_min" split_words:"true" default:"1908-01-01" validate:"datetime=2006-01-02"`
	DateMax   string `yaml:"date_max" split_words:"true" default:"2018-12-31" validate:"datetime=2006-01-02"`
	MaxListed int    `yaml:"max_listed" split_words:"true" default:"20" validate:"gte=0"`
}

// OutputConfig controls where derived artifacts are written.
type OutputConfig struct {
	Dir         string `yaml:"dir" split_words:"true" default:"output"`
	ReportFile  string `yaml:"report_file" split_words:"true" default:"validation_report.txt"`
	ProfileFile string `yaml:"profile_file" split_words:"true" default:"profile_report.txt"`
	UniqueDir   string `yaml:"unique_dir" split_words:"true" default:"unique"`
	ExportXLSX  bool   `yaml:"export_xlsx" split_words:"true"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" split_words:"true"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Source:      StoreConfig{Driver: database.DriverSQLite, DSN: "rawdata/plane_crashes_data.db", Table: "plane_crashes_data"},
		Destination: StoreConfig{Driver: database.DriverSQLite, DSN: "output/cleaned_plane_crashes.db", Table: "data"},
		Clean:       CleanOptions{CutoffYear: 2018, BatchSize: 100, Overwrite: true},
		Validation:  ValidateOptions{DateMin: "1908-01-01", DateMax: "2018-12-31", MaxListed: 20},
		Output: OutputConfig{
			Dir:         "output",
			ReportFile:  "validation_report.txt",
			ProfileFile: "profile_report.txt",
			UniqueDir:   "unique",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig builds the configuration from defaults, then environment
// variables, then the YAML file at path (if path is non-empty).
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !database.ValidIdent(c.Source.Table) || !database.ValidIdent(c.Destination.Table) {
		return ErrInvalidTable
	}
	if c.Source == c.Destination {
		return ErrSameSourceAndDest
	}
	if err := c.Clean.Validate(); err != nil {
		return err
	}
	return c.Validation.Check()
}

// Validate checks the cleaning options.
func (o CleanOptions) Validate() error {
	if o.CutoffYear < 1900 || o.CutoffYear > 2099 {
		return ErrInvalidCutoffYear
	}
	if o.BatchSize < 1 || o.BatchSize > 100 {
		return ErrInvalidBatchSize
	}
	return nil
}

// Check verifies the date bounds parse and are ordered.
func (o ValidateOptions) Check() error {
	_, _, err := o.DateRange()
	return err
}

// DateRange returns the inclusive date bounds accepted by the validator.
func (o ValidateOptions) DateRange() (time.Time, time.Time, error) {
	lo, err := time.Parse(isoDate, o.DateMin)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateBound, o.DateMin)
	}
	hi, err := time.Parse(isoDate, o.DateMax)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateBound, o.DateMax)
	}
	if lo.After(hi) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return lo, hi, nil
}

// String returns a short description of the run configuration.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Source: %s/%s, Destination: %s/%s, CutoffYear: %d, DateRange: %s..%s}",
		c.Source.Driver, c.Source.Table,
		c.Destination.Driver, c.Destination.Table,
		c.Clean.CutoffYear, c.Validation.DateMin, c.Validation.DateMax,
	)
}
