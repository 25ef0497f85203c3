package laudo

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.TemplatePath != "Vistoria_Modelo.docx" {
		t.Errorf("DefaultConfig TemplatePath = %s, want Vistoria_Modelo.docx", config.TemplatePath)
	}
	if config.OutputDir != "gerados" {
		t.Errorf("DefaultConfig OutputDir = %s, want gerados", config.OutputDir)
	}
	if config.ImageWidth != Inches(3) {
		t.Errorf("DefaultConfig ImageWidth = %d, want %d", config.ImageWidth, Inches(3))
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid: %v", err)
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	config := NewConfigWithDefaults(Config{OutputDir: "/tmp/out"})

	if config.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %s, want /tmp/out", config.OutputDir)
	}
	if config.TemplatePath != "Vistoria_Modelo.docx" {
		t.Errorf("TemplatePath = %s, want default", config.TemplatePath)
	}
	if config.ImageWidth != DefaultImageWidth {
		t.Errorf("ImageWidth = %d, want default", config.ImageWidth)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"missing template", Config{OutputDir: "out", ImageWidth: Inches(3)}, "template path"},
		{"missing output", Config{TemplatePath: "t.docx", ImageWidth: Inches(3)}, "output directory"},
		{"zero width", Config{TemplatePath: "t.docx", OutputDir: "out"}, "image width"},
		{"huge width", Config{TemplatePath: "t.docx", OutputDir: "out", ImageWidth: Inches(40)}, "image width"},
		{"valid", Config{TemplatePath: "t.docx", OutputDir: "out", ImageWidth: Inches(2.5)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
