// =============================================================================
// ykj-wgs - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Values are layered, later
// layers overriding earlier ones:
//   1. Built-in defaults (applied for keys no layer sets)
//   2. Optional YAML file (ykj-wgs.yaml, or the path in $YKJWGS_CONFIG)
//   3. Optional .env file in the working directory
//   4. Environment variables: YKJWGS__SECTION__KEY (e.g. YKJWGS__RETRY__COUNT)
//
// The configuration is loaded once at startup and is never reloaded.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	// DefaultFile is the configuration file looked up in the working directory.
	DefaultFile = "ykj-wgs.yaml"

	// PathEnv names the environment variable that overrides DefaultFile.
	PathEnv = "YKJWGS_CONFIG"

	// EnvPrefix is the prefix of environment variable overrides.
	EnvPrefix = "YKJWGS__"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the whole application configuration.
type Config struct {
	Service ServiceConfig `koanf:"service" yaml:"service"`
	Retry   RetryConfig   `koanf:"retry" yaml:"retry"`
	Input   InputConfig   `koanf:"input" yaml:"input"`
	Output  OutputConfig  `koanf:"output" yaml:"output"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics"`
}

// ServiceConfig describes the remote coordinate-transformation service.
type ServiceConfig struct {
	// Endpoint receives the form-encoded POST requests.
	Endpoint string `koanf:"endpoint" yaml:"endpoint"`

	// ActionRoute is the operation identifier sent as "action_route".
	ActionRoute string `koanf:"action_route" yaml:"action_route"`

	// SourceSRS is the reference system of the input points ("srs").
	SourceSRS string `koanf:"source_srs" yaml:"source_srs"`

	// TargetSRS is the requested output reference system ("targetSRS").
	TargetSRS string `koanf:"target_srs" yaml:"target_srs"`

	// Timeout bounds a single attempt.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

// RetryConfig controls the transform client's retry policy.
type RetryConfig struct {
	// Count is the number of retries after the first attempt.
	Count int `koanf:"count" yaml:"count"`

	// Wait is the fixed delay between a failed attempt and the next one.
	Wait time.Duration `koanf:"wait" yaml:"wait"`
}

// InputConfig controls how input rows are read.
type InputConfig struct {
	// Delimiter separates CSV fields. Accepts a single character or one of
	// "tab", "pipe", "semicolon".
	Delimiter string `koanf:"delimiter" yaml:"delimiter"`

	// HeaderRows is the number of leading rows to skip. Default 0: every row
	// is data.
	HeaderRows int `koanf:"header_rows" yaml:"header_rows"`

	// Sheet selects the XLSX worksheet. Empty means the first sheet.
	Sheet string `koanf:"sheet" yaml:"sheet"`

	// SkipMalformed skips rows that cannot be parsed instead of failing the
	// run. Skipped rows are written to an error log next to the output.
	SkipMalformed bool `koanf:"skip_malformed" yaml:"skip_malformed"`
}

// OutputConfig controls the exchange document(s).
type OutputConfig struct {
	// NameFormat builds the output file name. Placeholders: {input} (the
	// input path), {base} (input file name without extension), {dir},
	// {timestamp}, {date}, {uuid}.
	NameFormat string `koanf:"name_format" yaml:"name_format"`

	// Creator is written to the gpx "creator" attribute.
	Creator string `koanf:"creator" yaml:"creator"`

	// Indent is the XML indentation string.
	Indent string `koanf:"indent" yaml:"indent"`

	// KML additionally writes a KML rendering of the document.
	KML bool `koanf:"kml" yaml:"kml"`
}

// LogConfig controls process-wide logging.
type LogConfig struct {
	// File is appended to. Empty logs to stderr.
	File string `koanf:"file" yaml:"file"`

	// Level is one of "debug", "info", "warn", "error".
	Level string `koanf:"level" yaml:"level"`

	// JSON switches from text to JSON lines.
	JSON bool `koanf:"json" yaml:"json"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written at the end of a run when set.
	Textfile string `koanf:"textfile" yaml:"textfile"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the configuration used when no layer sets anything.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			Endpoint:    "https://hkp.maanmittauslaitos.fi/hkp/action",
			ActionRoute: "Coordinates",
			SourceSRS:   "NLSFI:ykj",
			TargetSRS:   "EPSG:4258",
			Timeout:     30 * time.Second,
		},
		Retry: RetryConfig{
			Count: 0,
			Wait:  time.Second,
		},
		Input: InputConfig{
			Delimiter:  ",",
			HeaderRows: 0,
		},
		Output: OutputConfig{
			NameFormat: "{input}.gpx",
			Creator:    "ykj-wgs",
			Indent:     "  ",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration. An empty path resolves to $YKJWGS_CONFIG and
// then to DefaultFile; a missing file is not an error unless the path was
// given explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(PathEnv)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// .env only feeds the environment layer below.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return fromKoanf(k)
}

// fromKoanf unmarshals the merged layers and fills in unset keys.
func fromKoanf(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg, k)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey maps YKJWGS__RETRY__COUNT to retry.count.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// applyDefaults fills every key that no layer set. Checking presence rather
// than zero values keeps explicit zeros such as retry.wait: 0s.
func applyDefaults(cfg *Config, k *koanf.Koanf) {
	def := Default()
	set := func(key string, apply func()) {
		if !k.Exists(key) {
			apply()
		}
	}

	set("service.endpoint", func() { cfg.Service.Endpoint = def.Service.Endpoint })
	set("service.action_route", func() { cfg.Service.ActionRoute = def.Service.ActionRoute })
	set("service.source_srs", func() { cfg.Service.SourceSRS = def.Service.SourceSRS })
	set("service.target_srs", func() { cfg.Service.TargetSRS = def.Service.TargetSRS })
	set("service.timeout", func() { cfg.Service.Timeout = def.Service.Timeout })
	set("retry.wait", func() { cfg.Retry.Wait = def.Retry.Wait })
	set("input.delimiter", func() { cfg.Input.Delimiter = def.Input.Delimiter })
	set("output.name_format", func() { cfg.Output.NameFormat = def.Output.NameFormat })
	set("output.creator", func() { cfg.Output.Creator = def.Output.Creator })
	set("output.indent", func() { cfg.Output.Indent = def.Output.Indent })
	set("log.level", func() { cfg.Log.Level = def.Log.Level })
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values the run cannot work with.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Service.Endpoint == "" {
		errs = append(errs, errors.New("service.endpoint must be set"))
	}
	if cfg.Service.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("service.timeout must be positive, got %s", cfg.Service.Timeout))
	}
	if cfg.Retry.Count < 0 {
		errs = append(errs, fmt.Errorf("retry.count must not be negative, got %d", cfg.Retry.Count))
	}
	if cfg.Retry.Wait < 0 {
		errs = append(errs, fmt.Errorf("retry.wait must not be negative, got %s", cfg.Retry.Wait))
	}
	if cfg.Input.HeaderRows < 0 {
		errs = append(errs, fmt.Errorf("input.header_rows must not be negative, got %d", cfg.Input.HeaderRows))
	}
	if cfg.Output.NameFormat == "" {
		errs = append(errs, errors.New("output.name_format must be set"))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}

// =============================================================================
// RENDERING
// =============================================================================

// Dump renders the configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	out, err := yamlv3.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

// MarshalYAML renders the timeout as a duration string ("30s") so the dump
// can be loaded back.
func (s ServiceConfig) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"endpoint":     s.Endpoint,
		"action_route": s.ActionRoute,
		"source_srs":   s.SourceSRS,
		"target_srs":   s.TargetSRS,
		"timeout":      s.Timeout.String(),
	}, nil
}

// MarshalYAML renders the wait as a duration string.
func (r RetryConfig) MarshalYAML() (interface{}, error) {
	return map[string]interface{}{
		"count": r.Count,
		"wait":  r.Wait.String(),
	}, nil
}
