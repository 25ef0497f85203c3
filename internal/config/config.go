// Package config loads the settings of the laudo service from a YAML file
// and LAUDO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vistoriadocs/laudo/internal/uploads"
	"github.com/vistoriadocs/laudo/pkg/laudo"
)

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Paths        PathsConfig        `yaml:"paths"`
	Uploads      UploadsConfig      `yaml:"uploads"`
	Generation   GenerationConfig   `yaml:"generation"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Logger       LoggerConfig       `yaml:"logger"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	// SecretKey signs the flash message cookie. A random key is generated
	// at startup when empty, which invalidates pending messages on restart.
	SecretKey string `yaml:"secretKey"`
}

// PathsConfig holds the template and the working directories.
type PathsConfig struct {
	Template string `yaml:"template"`
	Uploads  string `yaml:"uploads"`
	Output   string `yaml:"output"`
}

// UploadsConfig bounds what a request may upload.
type UploadsConfig struct {
	MaxFileBytes    int64    `yaml:"maxFileBytes"`
	MaxRequestBytes int64    `yaml:"maxRequestBytes"`
	AllowedPatterns []string `yaml:"allowedPatterns"`
}

// GenerationConfig tunes document generation.
type GenerationConfig struct {
	ImageWidthInches float64  `yaml:"imageWidthInches"`
	RequiredFields   []string `yaml:"requiredFields"`
}

// HousekeepingConfig controls the removal of old files.
type HousekeepingConfig struct {
	Retention time.Duration `yaml:"retention"`
	Interval  time.Duration `yaml:"interval"`
}

// LoggerConfig sets the minimum log level.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	policy := uploads.DefaultPolicy()
	return Config{
		Server: ServerConfig{
			Addr:         ":5000",
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Paths: PathsConfig{
			Template: "Vistoria_Modelo.docx",
			Uploads:  "uploads",
			Output:   "gerados",
		},
		Uploads: UploadsConfig{
			MaxFileBytes:    policy.MaxFileBytes,
			MaxRequestBytes: 128 << 20,
			AllowedPatterns: policy.AllowedPatterns,
		},
		Generation: GenerationConfig{
			ImageWidthInches: 3,
			RequiredFields:   []string{"LOCATARIO_NOME_1"},
		},
		Housekeeping: HousekeepingConfig{
			Retention: 24 * time.Hour,
			Interval:  time.Hour,
		},
		Logger: LoggerConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LAUDO_* variables. PORT is honoured when
// LAUDO_ADDR is unset.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	var errs []error

	if v, ok := get("LAUDO_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := get("PORT"); ok {
		c.Server.Addr = ":" + v
	}
	if v, ok := get("LAUDO_SECRET_KEY"); ok {
		c.Server.SecretKey = v
	}
	if v, ok := get("LAUDO_TEMPLATE"); ok {
		c.Paths.Template = v
	}
	if v, ok := get("LAUDO_UPLOAD_DIR"); ok {
		c.Paths.Uploads = v
	}
	if v, ok := get("LAUDO_OUTPUT_DIR"); ok {
		c.Paths.Output = v
	}
	if v, ok := get("LAUDO_LOG_LEVEL"); ok {
		c.Logger.Level = v
	}
	if v, ok := get("LAUDO_ALLOWED_PATTERNS"); ok {
		c.Uploads.AllowedPatterns = splitList(v)
	}
	if v, ok := get("LAUDO_REQUIRED_FIELDS"); ok {
		c.Generation.RequiredFields = splitList(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LAUDO_RETENTION", &c.Housekeeping.Retention},
		{"LAUDO_SWEEP_INTERVAL", &c.Housekeeping.Interval},
		{"LAUDO_READ_TIMEOUT", &c.Server.ReadTimeout},
		{"LAUDO_WRITE_TIMEOUT", &c.Server.WriteTimeout},
	}
	for _, d := range durations {
		if v, ok := get(d.key); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
				continue
			}
			*d.dst = parsed
		}
	}

	sizes := []struct {
		key string
		dst *int64
	}{
		{"LAUDO_MAX_FILE_BYTES", &c.Uploads.MaxFileBytes},
		{"LAUDO_MAX_REQUEST_BYTES", &c.Uploads.MaxRequestBytes},
	}
	for _, s := range sizes {
		if v, ok := get(s.key); ok {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.key, err))
				continue
			}
			*s.dst = parsed
		}
	}

	if v, ok := get("LAUDO_IMAGE_WIDTH_INCHES"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LAUDO_IMAGE_WIDTH_INCHES: %w", err))
		} else {
			c.Generation.ImageWidthInches = parsed
		}
	}

	return errors.Join(errs...)
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	var issues []laudo.ValidationIssue
	add := func(field, msg string) {
		issues = append(issues, laudo.ValidationIssue{Field: field, Message: msg})
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		add("server.addr", "is required")
	}
	if strings.TrimSpace(c.Paths.Template) == "" {
		add("paths.template", "is required")
	}
	if strings.TrimSpace(c.Paths.Uploads) == "" {
		add("paths.uploads", "is required")
	}
	if strings.TrimSpace(c.Paths.Output) == "" {
		add("paths.output", "is required")
	}
	if c.Uploads.MaxFileBytes <= 0 {
		add("uploads.maxFileBytes", "must be positive")
	}
	if c.Uploads.MaxRequestBytes < c.Uploads.MaxFileBytes {
		add("uploads.maxRequestBytes", "must not be smaller than uploads.maxFileBytes")
	}
	if len(c.Uploads.AllowedPatterns) == 0 {
		add("uploads.allowedPatterns", "must not be empty")
	}
	if c.Generation.ImageWidthInches <= 0 {
		add("generation.imageWidthInches", "must be positive")
	}
	if c.Housekeeping.Retention <= 0 {
		add("housekeeping.retention", "must be positive")
	}
	if c.Housekeeping.Interval < 0 {
		add("housekeeping.interval", "must not be negative")
	}
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		add("logger.level", fmt.Sprintf("unknown level %q", c.Logger.Level))
	}

	if len(issues) > 0 {
		return &laudo.ValidationError{Issues: issues}
	}
	return nil
}

// EnsureDirs creates the upload and output directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.Uploads, c.Paths.Output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UploadPolicy returns the upload policy described by the configuration.
func (c Config) UploadPolicy() uploads.Policy {
	return uploads.Policy{
		AllowedPatterns: append([]string(nil), c.Uploads.AllowedPatterns...),
		MaxFileBytes:    c.Uploads.MaxFileBytes,
	}
}

// GeneratorConfig returns the document generator settings.
func (c Config) GeneratorConfig() laudo.Config {
	return laudo.Config{
		TemplatePath: c.Paths.Template,
		OutputDir:    c.Paths.Output,
		ImageWidth:   laudo.Inches(c.Generation.ImageWidthInches),
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
