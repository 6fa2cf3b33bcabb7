package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
)

// EnvPrefix namespaces every environment override (MARINE_STUDY_YEAR, ...).
const EnvPrefix = "MARINE"

// OutputFileSuffix is appended to the report file prefix.
const OutputFileSuffix = "_MarineEconomy.xlsx"

// Failure policies for zip codes whose retrieval failed.
const (
	FailurePolicyAbort = "abort"
	FailurePolicySkip  = "skip"
)

// Config represents the complete application configuration
type Config struct {
	Study     StudyConfig     `yaml:"study" envconfig:"STUDY"`
	Census    CensusConfig    `yaml:"census" envconfig:"CENSUS"`
	Reference ReferenceConfig `yaml:"reference" envconfig:"REFERENCE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// StudyConfig describes the study area and dataset year. Zip codes stay
// strings: leading zeros are significant.
type StudyConfig struct {
	ZipCodes         []string `yaml:"zip_codes" envconfig:"ZIP_CODES" validate:"required,min=1,dive,zipcode"`
	Year             string   `yaml:"year" envconfig:"YEAR" validate:"required,len=4,numeric"`
	IndustryWildcard string   `yaml:"industry_wildcard" envconfig:"INDUSTRY_WILDCARD" validate:"required"`
}

// CensusConfig contains the statistics API client configuration
type CensusConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Dataset           string        `yaml:"dataset" envconfig:"DATASET" validate:"required"`
	APIKey            string        `yaml:"api_key" envconfig:"API_KEY"`
	SupportedYears    []string      `yaml:"supported_years" envconfig:"SUPPORTED_YEARS" validate:"required,min=1,dive,len=4,numeric"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxRetries        uint64        `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"lte=10"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" envconfig:"INITIAL_BACKOFF" validate:"gt=0"`
	MaxBackoff        time.Duration `yaml:"max_backoff" envconfig:"MAX_BACKOFF" validate:"gtefield=InitialBackoff"`
	Concurrency       int           `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"min=1,max=16"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	FailurePolicy     string        `yaml:"failure_policy" envconfig:"FAILURE_POLICY" validate:"oneof=abort skip"`
}

// ReferenceConfig contains the reference-table inputs. Midpoints align
// positionally with reference.SizeClassCodes.
type ReferenceConfig struct {
	Midpoints     []string `yaml:"midpoints" envconfig:"MIDPOINTS" validate:"len=9,dive,midpoint"`
	CrosswalkFile string   `yaml:"crosswalk_file" envconfig:"CROSSWALK_FILE" validate:"omitempty,file"`
}

// ReportConfig contains the spreadsheet artifact configuration
type ReportConfig struct {
	OutputDir  string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	FilePrefix string `yaml:"file_prefix" envconfig:"FILE_PREFIX" validate:"required,excludesall=/\\"`
	NaNLabel   string `yaml:"nan_label" envconfig:"NAN_LABEL"`
	// CSVDir, when set, also receives the analysis tables as CSV files.
	CSVDir string `yaml:"csv_dir" envconfig:"CSV_DIR"`
}

// OutputPath returns the final artifact path: {dir}/{prefix}_MarineEconomy.xlsx
func (r ReportConfig) OutputPath() string {
	return filepath.Join(r.OutputDir, r.FilePrefix+OutputFileSuffix)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig contains tracing and metrics configuration. Both are
// written to files: the run is a one-shot batch with no scrape endpoint.
type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceFile     string  `yaml:"trace_file" envconfig:"TRACE_FILE" validate:"required_if=EnableTracing true"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	MetricsFile   string  `yaml:"metrics_file" envconfig:"METRICS_FILE" validate:"required_if=EnableMetrics true"`
}

// Default returns default configuration. The study values reproduce the
// sample Lake Superior study area.
func Default() *Config {
	return &Config{
		Study: StudyConfig{
			ZipCodes:         []string{"54880", "55807", "55811", "55806", "55804", "55616"},
			Year:             "2016",
			IndustryWildcard: "*",
		},
		Census: CensusConfig{
			BaseURL:           "https://api.census.gov/data",
			Dataset:           "zbp",
			SupportedYears:    []string{"2012", "2013", "2014", "2015", "2016", "2017", "2018"},
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			Concurrency:       4,
			RequestsPerSecond: 5,
			Burst:             1,
			FailurePolicy:     FailurePolicyAbort,
		},
		Reference: ReferenceConfig{
			Midpoints: []string{"2.5", "7", "14.5", "34.5", "74.5", "174.5", "374.5", "749.5", "1000"},
		},
		Report: ReportConfig{
			OutputDir:  ".",
			FilePrefix: "Sample",
			NaNLabel:   "NaN",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/marine-economy.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "local-marine-economy",
			Environment:   "production",
			EnableTracing: false,
			TraceFile:     "logs/marine-economy-trace.json",
			SampleRatio:   1.0,
			EnableMetrics: false,
			MetricsFile:   "logs/marine-economy.prom",
		},
	}
}

// Option mutates a loaded configuration before validation. The CLI uses
// options to apply flag overrides.
type Option func(*Config)

// Load builds the configuration from defaults, an optional YAML file and
// MARINE_* environment variables, in increasing order of precedence, then
// applies opts and validates the result. An empty path searches the usual
// locations; a missing explicit path is an error.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, apperrors.NewConfigError("failed to load config file", err).
					WithContext("path", path)
			}
		}
	}

	// Fields without a matching variable are left untouched.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"marine-economy.yaml",
		"configs/marine-economy.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}
