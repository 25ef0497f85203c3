package laudo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Generator produces inspection reports from a template. The template is
// read from disk on every call, so edits to it take effect immediately.
type Generator struct {
	cfg    Config
	logger *zap.Logger
}

// Request is the input of one generation.
type Request struct {
	Text   TextBindings
	Images ImageBindings
	// OutputName is the file name, without directory, of the new document.
	OutputName string
}

// Result describes a generated document.
type Result struct {
	OutputPath    string
	Replacements  int
	ImagesAdded   int
	ImageFailures []*ImageError
}

// HasWarnings reports whether some images were left out of the document.
func (r *Result) HasWarnings() bool {
	return len(r.ImageFailures) > 0
}

// NewGenerator creates a generator. Unset fields take their defaults.
func NewGenerator(cfg Config) (*Generator, error) {
	cfg = NewConfigWithDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{cfg: cfg, logger: logger.Named("laudo")}, nil
}

// Config returns the generator's effective configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// CheckTemplate verifies that the template file exists and is a regular file.
func (g *Generator) CheckTemplate() error {
	info, err := os.Stat(g.cfg.TemplatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocumentError("stat", g.cfg.TemplatePath, ErrTemplateMissing)
		}
		return NewDocumentError("stat", g.cfg.TemplatePath, err)
	}
	if !info.Mode().IsRegular() {
		return NewDocumentError("stat", g.cfg.TemplatePath, errors.New("not a regular file"))
	}
	return nil
}

// Generate loads the template, substitutes text, injects images and saves
// the result under the output directory. Failing images are reported in the
// result; any other failure aborts the generation without leaving an
// output file behind.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	logger := LoggerFromContext(ctx, g.logger)
	start := time.Now()

	if err := validateOutputName(req.OutputName); err != nil {
		return nil, err
	}
	outputPath := filepath.Join(g.cfg.OutputDir, req.OutputName)

	doc, err := OpenDocument(g.cfg.TemplatePath)
	if err != nil {
		logger.Error("failed to load template", zap.String("template", g.cfg.TemplatePath), zap.Error(err))
		return nil, err
	}

	replaced := doc.Substitute(req.Text)
	report := doc.InjectImages(req.Images, g.cfg.ImageWidth)
	for _, f := range report.Failures {
		logger.Warn("image skipped",
			zap.Stringer("category", f.Category),
			zap.String("path", f.Path),
			zap.Error(f.Cause),
		)
	}

	if err := doc.SaveAs(outputPath); err != nil {
		logger.Error("failed to save document", zap.String("output", outputPath), zap.Error(err))
		return nil, err
	}

	result := &Result{
		OutputPath:    outputPath,
		Replacements:  replaced,
		ImagesAdded:   report.Added,
		ImageFailures: report.Failures,
	}
	logger.Info("document generated",
		zap.String("output", outputPath),
		zap.Int("replacements", replaced),
		zap.Int("images_added", report.Added),
		zap.Int("images_failed", len(report.Failures)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func validateOutputName(name string) error {
	switch {
	case strings.TrimSpace(name) == "",
		name == ".", name == "..",
		strings.ContainsAny(name, `/\`),
		filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidOutputName, name)
	}
	return nil
}
