package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vistoriadocs/laudo/internal/config"
	"github.com/vistoriadocs/laudo/pkg/laudo"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// globalFlags are shared by every subcommand and override the config file.
type globalFlags struct {
	configPath string
	logLevel   string
	template   string
	uploadDir  string
	outputDir  string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "laudo",
		Short:         "Gera laudos de vistoria a partir de um modelo DOCX",
		Long:          `laudo preenche um modelo Word com os dados de uma vistoria e insere as fotos de cada cômodo.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.template, "template", "", "DOCX template path")
	pf.StringVar(&flags.uploadDir, "upload-dir", "", "directory for uploaded photos")
	pf.StringVar(&flags.outputDir, "output-dir", "", "directory for generated reports")

	root.AddCommand(
		newServeCommand(flags),
		newGenerateCommand(flags),
		newSweepCommand(flags),
		newVersionCommand(),
	)
	return root
}

// load reads the configuration and applies command line overrides.
func (f *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Logger.Level = f.logLevel
	}
	if f.template != "" {
		cfg.Paths.Template = f.template
	}
	if f.uploadDir != "" {
		cfg.Paths.Uploads = f.uploadDir
	}
	if f.outputDir != "" {
		cfg.Paths.Output = f.outputDir
	}
	return cfg, cfg.Validate()
}

// commandLogger writes JSON logs to w, which is stderr outside of tests.
func commandLogger(w io.Writer, cfg config.Config) *zap.Logger {
	return laudo.NewLoggerTo(w, cfg.Logger.Level)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "laudo %s\n", version)
		},
	}
}
