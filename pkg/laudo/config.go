package laudo

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Config contains the options of a Generator
type Config struct {
	// TemplatePath is the DOCX file holding tokens and image markers.
	TemplatePath string
	// OutputDir receives generated documents.
	OutputDir string
	// ImageWidth is the display width of injected pictures. Height follows
	// the image's aspect ratio.
	ImageWidth Length
	// Logger receives generation events. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		TemplatePath: "Vistoria_Modelo.docx",
		OutputDir:    "gerados",
		ImageWidth:   DefaultImageWidth,
	}
}

// NewConfigWithDefaults returns overrides with defaults applied to unset fields
func NewConfigWithDefaults(overrides Config) Config {
	defaults := DefaultConfig()
	config := overrides

	if strings.TrimSpace(config.TemplatePath) == "" {
		config.TemplatePath = defaults.TemplatePath
	}
	if strings.TrimSpace(config.OutputDir) == "" {
		config.OutputDir = defaults.OutputDir
	}
	if config.ImageWidth == 0 {
		config.ImageWidth = defaults.ImageWidth
	}
	return config
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if strings.TrimSpace(c.TemplatePath) == "" {
		return errors.New("template path is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output directory is required")
	}
	if c.ImageWidth <= 0 {
		return errors.New("image width must be positive")
	}
	if c.ImageWidth > Inches(22) {
		return errors.New("image width exceeds the largest page Word supports")
	}
	return nil
}
