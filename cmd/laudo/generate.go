package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vistoriadocs/laudo/pkg/laudo"
)

// reportData is the YAML input of the generate command:
//
//	texto:
//	  LOCATARIO_NOME_1: Maria Silva
//	imagens:
//	  sala: [fotos/sala1.jpg, fotos/sala2.jpg]
//
// Relative image paths are resolved against the data file's directory.
type reportData struct {
	Texto   map[string]string   `yaml:"texto"`
	Imagens map[string][]string `yaml:"imagens"`
}

func loadReportData(path string) (laudo.TextBindings, laudo.ImageBindings, map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read data file: %w", err)
	}
	var data reportData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, nil, nil, fmt.Errorf("parse data file %s: %w", path, err)
	}

	base := filepath.Dir(path)
	images := laudo.ImageBindings{}
	names := make([]string, 0, len(data.Imagens))
	for name := range data.Imagens {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c, err := laudo.ParseCategory(name)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, p := range data.Imagens[name] {
			if !filepath.IsAbs(p) {
				p = filepath.Join(base, p)
			}
			images.Add(c, p)
		}
	}
	return laudo.BindText(data.Texto), images, data.Texto, nil
}

func newGenerateCommand(flags *globalFlags) *cobra.Command {
	var dataPath, outPath string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one report from a YAML data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			text, images, fields, err := loadReportData(dataPath)
			if err != nil {
				return err
			}
			if err := laudo.ValidateRequired(fields, cfg.Generation.RequiredFields); err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			genCfg := cfg.GeneratorConfig()
			genCfg.OutputDir = filepath.Dir(outPath)
			genCfg.Logger = commandLogger(cmd.ErrOrStderr(), cfg)
			gen, err := laudo.NewGenerator(genCfg)
			if err != nil {
				return err
			}

			res, err := gen.Generate(cmd.Context(), laudo.Request{
				Text:       text,
				Images:     images,
				OutputName: filepath.Base(outPath),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d replacements, %d images\n", res.OutputPath, res.Replacements, res.ImagesAdded)
			for _, f := range res.ImageFailures {
				fmt.Fprintf(out, "skipped: %v\n", f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "YAML file with texto and imagens")
	cmd.Flags().StringVarP(&outPath, "out", "o", "laudo.docx", "output DOCX path")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
