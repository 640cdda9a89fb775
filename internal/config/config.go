package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"ecgprep/internal/dataset"
	"ecgprep/internal/preprocess"
)

// EnvPrefix namespaces environment overrides, e.g. ECG_PREPROCESS_TARGET_LENGTH.
const EnvPrefix = "ECG"

// Config represents the complete application configuration
type Config struct {
	Preprocess PreprocessConfig `yaml:"preprocess" json:"preprocess" envconfig:"PREPROCESS"`
	Dataset    DatasetConfig    `yaml:"dataset" json:"dataset" envconfig:"DATASET"`
	Inference  InferenceConfig  `yaml:"inference" json:"inference" envconfig:"INFERENCE"`
	Server     ServerConfig     `yaml:"server" json:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry" envconfig:"TELEMETRY"`
}

// PreprocessConfig holds the signal normalizer settings. SamplingRate is
// informational only.
type PreprocessConfig struct {
	SamplingRate       int `yaml:"sampling_rate" json:"sampling_rate" envconfig:"SAMPLING_RATE" validate:"gt=0"`
	TargetLength       int `yaml:"target_length" json:"target_length" envconfig:"TARGET_LENGTH" validate:"gt=0"`
	DownsamplingFactor int `yaml:"downsampling_factor" json:"downsampling_factor" envconfig:"DOWNSAMPLING_FACTOR" validate:"gt=0"`
}

// DatasetConfig describes where the dataset lives and how records are named.
type DatasetConfig struct {
	ArchiveURL    string `yaml:"archive_url" json:"archive_url" envconfig:"ARCHIVE_URL" validate:"required,url"`
	ArchiveFile   string `yaml:"archive_file" json:"archive_file" envconfig:"ARCHIVE_FILE" validate:"required"`
	ProjectURL    string `yaml:"project_url" json:"project_url" envconfig:"PROJECT_URL" validate:"omitempty,url"`
	ResolveLatest bool   `yaml:"resolve_latest" json:"resolve_latest" envconfig:"RESOLVE_LATEST"`
	DataDir       string `yaml:"data_dir" json:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ProcessedDir  string `yaml:"processed_dir" json:"processed_dir" envconfig:"PROCESSED_DIR"`
	ManifestFile  string `yaml:"manifest_file" json:"manifest_file" envconfig:"MANIFEST_FILE" validate:"required"`
	RootHint      string `yaml:"root_hint" json:"root_hint" envconfig:"ROOT_HINT"`
	IDColumn      string `yaml:"id_column" json:"id_column" envconfig:"ID_COLUMN" validate:"required"`
	Resolution    string `yaml:"resolution" json:"resolution" envconfig:"RESOLUTION" validate:"oneof=hr lr"`

	// Overrides for the resolution preset.
	PathColumn     string `yaml:"path_column" json:"path_column,omitempty" envconfig:"PATH_COLUMN"`
	Marker         string `yaml:"marker" json:"marker,omitempty" envconfig:"MARKER"`
	SuffixToken    string `yaml:"suffix_token" json:"suffix_token,omitempty" envconfig:"SUFFIX_TOKEN"`
	ExtensionToken string `yaml:"extension_token" json:"extension_token,omitempty" envconfig:"EXTENSION_TOKEN"`

	XLSXReport bool `yaml:"xlsx_report" json:"xlsx_report" envconfig:"XLSX_REPORT"`
}

// InferenceConfig selects the model backend and execution device.
type InferenceConfig struct {
	Device   string        `yaml:"device" json:"device" envconfig:"DEVICE" validate:"oneof=auto cpu cuda"`
	ModelURL string        `yaml:"model_url" json:"model_url,omitempty" envconfig:"MODEL_URL" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" json:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" json:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" json:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" json:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" json:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" json:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" json:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"gt=0"`
	AllowedOrigins  []string        `yaml:"allowed_origins" json:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" json:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" json:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" json:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" json:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" json:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" json:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig toggles tracing and metrics.
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" json:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing  bool    `yaml:"enable_tracing" json:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool    `yaml:"enable_metrics" json:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter  string  `yaml:"trace_exporter" json:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" json:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" json:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Preprocess: PreprocessConfig{
			SamplingRate:       DefaultSamplingRate,
			TargetLength:       DefaultTargetLength,
			DownsamplingFactor: DefaultDownsamplingFactor,
		},
		Dataset: DatasetConfig{
			ArchiveURL:   DefaultArchiveURL,
			ArchiveFile:  DefaultArchiveFile,
			ProjectURL:   DefaultProjectURL,
			DataDir:      DefaultDataDir,
			ManifestFile: DefaultManifestFile,
			RootHint:     DefaultRootHint,
			IDColumn:     DefaultIDColumn,
			Resolution:   dataset.ResolutionHigh,
		},
		Inference: InferenceConfig{
			Device:  "auto",
			Timeout: DefaultInferenceTimeout,
		},
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    64 << 20,
			AllowedOrigins:  []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   20,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/ecgprep.log",
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			EnableTracing:  false,
			EnableMetrics:  true,
			TraceExporter:  "stdout",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first file found in the default locations when path is empty),
// then ECG_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	// Per project convention logs are always JSON.
	c.Logging.Format = "json"
	return nil
}

// Options returns the normalizer options.
func (p PreprocessConfig) Options() preprocess.Options {
	return preprocess.Options{
		SamplingRate:       p.SamplingRate,
		TargetLength:       p.TargetLength,
		DownsamplingFactor: p.DownsamplingFactor,
	}
}

// Columns returns the manifest columns for the configured resolution.
func (d DatasetConfig) Columns() dataset.Columns {
	col, _, _ := dataset.Preset(d.Resolution)
	if d.PathColumn != "" {
		col = d.PathColumn
	}
	return dataset.Columns{ID: d.IDColumn, Path: col}
}

// NamingRule returns the output naming rule for the configured resolution.
func (d DatasetConfig) NamingRule() dataset.NamingRule {
	_, rule, _ := dataset.Preset(d.Resolution)
	if d.Marker != "" {
		rule.Marker = d.Marker
	}
	if d.SuffixToken != "" {
		rule.SuffixToken = d.SuffixToken
	}
	if d.ExtensionToken != "" {
		rule.ExtensionToken = d.ExtensionToken
	}
	return rule
}

// Address is the listen address of the HTTP server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// findConfigFile returns the first existing default config location, or "".
func findConfigFile() string {
	locations := []string{
		"ecgprep.yaml",
		filepath.Join("configs", "ecgprep.yaml"),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}
