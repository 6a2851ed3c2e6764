//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for orderdw-etl.
// Configuration is loaded from a YAML config file and CLI flags; CLI flags take
// precedence over config file values. When no connection string is configured,
// one is assembled from the POSTGRES_* variables of an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds all configuration for orderdw-etl.
type Config struct {
	// Connection is the PostgreSQL connection string of the warehouse.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogFormat selects console ("pretty") or JSON ("json") log output.
	LogFormat string `mapstructure:"log_format" validate:"omitempty,oneof=pretty json"`

	Staging  StagingConfig  `mapstructure:"staging"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Validate ValidateConfig `mapstructure:"validate"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Events   EventsConfig   `mapstructure:"events"`
	Generate GenerateConfig `mapstructure:"generate"`
}

// StagingConfig holds configuration for the raw file to staging load.
type StagingConfig struct {
	// DataDir is the directory holding the source CSV files.
	DataDir string `mapstructure:"data_dir"`

	// BatchSize is the number of rows sent per COPY batch.
	BatchSize int `mapstructure:"batch_size" validate:"gte=1"`

	// MaxErrorFraction is the share of undecodable rows tolerated per file
	// before its table load is rolled back.
	MaxErrorFraction float64 `mapstructure:"max_error_fraction" validate:"gte=0,lte=1"`

	// Files maps source file names to staging table names.
	Files map[string]string `mapstructure:"files"`
}

// PipelineConfig holds configuration for the run command.
type PipelineConfig struct {
	// SkipStaging runs only the dimension and fact stages.
	SkipStaging bool `mapstructure:"skip_staging"`

	// ValidateAfter runs the validation suite after a successful load.
	ValidateAfter bool `mapstructure:"validate_after"`
}

// ValidateConfig holds configuration for the validation suite.
type ValidateConfig struct {
	// ChecksFile overrides the embedded check registry.
	ChecksFile string `mapstructure:"checks_file"`

	// ReportDir receives a timestamped JSON report when set.
	ReportDir string `mapstructure:"report_dir"`

	// FailOnWarning treats WARNING as a failing overall status.
	FailOnWarning bool `mapstructure:"fail_on_warning"`
}

// MetricsConfig holds Prometheus Pushgateway settings.
type MetricsConfig struct {
	// PushgatewayURL disables pushing when empty.
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`

	// Job is the Pushgateway job label.
	Job string `mapstructure:"job"`
}

// EventsConfig holds Kafka notification settings.
type EventsConfig struct {
	// Brokers disables publishing when empty.
	Brokers []string `mapstructure:"brokers"`

	// Topic receives run completion events.
	Topic string `mapstructure:"topic" validate:"required_with=Brokers"`
}

// GenerateConfig holds configuration for the sample dataset generator.
type GenerateConfig struct {
	OutputDir   string  `mapstructure:"output_dir"`
	Customers   int     `mapstructure:"customers" validate:"gte=1"`
	Sellers     int     `mapstructure:"sellers" validate:"gte=1"`
	Orders      int     `mapstructure:"orders" validate:"gte=1"`
	ZipPrefixes int     `mapstructure:"zip_prefixes" validate:"gte=1"`
	Seed        uint64  `mapstructure:"seed"`
	AnomalyRate float64 `mapstructure:"anomaly_rate" validate:"gte=0,lte=1"`
}

// DefaultStagingFiles maps the source dataset files to their staging tables.
func DefaultStagingFiles() map[string]string {
	return map[string]string{
		"olist_geolocation_dataset.csv": "staging.stg_geolocation",
		"olist_customers_dataset.csv":   "staging.stg_customers",
		"olist_sellers_dataset.csv":     "staging.stg_sellers",
		"olist_orders_dataset.csv":      "staging.stg_orders",
		"olist_order_items_dataset.csv": "staging.stg_order_items",
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "pretty",
		Staging: StagingConfig{
			DataDir:          "./data",
			BatchSize:        10000,
			MaxErrorFraction: 0.1,
			Files:            DefaultStagingFiles(),
		},
		Metrics: MetricsConfig{
			Job: "orderdw_etl",
		},
		Events: EventsConfig{
			Topic: "orderdw.etl.runs",
		},
		Generate: GenerateConfig{
			OutputDir:   "./data",
			Customers:   2000,
			Sellers:     200,
			Orders:      2500,
			ZipPrefixes: 500,
			AnomalyRate: 0.02,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./orderdw-etl.yaml
// 3. ~/.config/orderdw-etl/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("orderdw-etl")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "orderdw-etl"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if len(cfg.Staging.Files) == 0 {
		cfg.Staging.Files = DefaultStagingFiles()
	}

	if cfg.Connection == "" {
		conn, err := ConnectionFromEnv(".env")
		if err != nil {
			return nil, err
		}
		cfg.Connection = conn
	}

	return cfg, nil
}

// ConnectionFromEnv builds a connection string from POSTGRES_USER,
// POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_PORT and POSTGRES_DB. The named
// env file is loaded first when it exists; variables already set in the
// process environment win. An empty string is returned when POSTGRES_USER or
// POSTGRES_DB is missing.
func ConnectionFromEnv(envFile string) (string, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error reading %s: %w", envFile, err)
		}
	}

	user := os.Getenv("POSTGRES_USER")
	dbName := os.Getenv("POSTGRES_DB")
	if user == "" || dbName == "" {
		return "", nil
	}

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + port,
		Path:   "/" + dbName,
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String(), nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required (set --connection, the config file, or POSTGRES_* in .env)")
	}
	return validationError(validate.StructExcept(c, "Generate"))
}

// ValidateStage checks configuration required to load staging tables.
func (c *Config) ValidateStage() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Staging.DataDir == "" {
		return fmt.Errorf("staging data_dir is required")
	}
	if len(c.Staging.Files) == 0 {
		return fmt.Errorf("at least one staging file mapping is required")
	}
	for file, table := range c.Staging.Files {
		if !strings.Contains(table, ".") {
			return fmt.Errorf("staging table for %s must be schema-qualified, got '%s'", file, table)
		}
	}
	return nil
}

// ValidateGenerate checks configuration required by the generate command.
// It does not need a database connection.
func (c *Config) ValidateGenerate() error {
	if c.Generate.OutputDir == "" {
		return fmt.Errorf("generate output_dir is required")
	}
	if err := validationError(validate.Struct(c.Generate)); err != nil {
		return err
	}
	if c.Generate.ZipPrefixes > 100000 {
		return fmt.Errorf("zip_prefixes must be at most 100000")
	}
	return nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: rule '%s %s' failed for value '%v'",
			fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
