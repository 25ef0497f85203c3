package httpserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists the pages rendered inside the shared layout.
var pageNames = []string{"form", "resultado"}

type pages map[string]*template.Template

func loadPages() (pages, error) {
	out := make(pages, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// render executes the page into a buffer first so a template error never
// produces half a page.
func (p pages) render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := p[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render page %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// formField is a text input of the form. Its name is also the template token.
type formField struct {
	Name      string
	Label     string
	Type      string
	Multiline bool
	Required  bool
}

var formFields = []formField{
	{Name: "LOCATARIO_NOME_1", Label: "Nome do Locatário 1", Type: "text"},
	{Name: "LOCATARIO_NOME_2", Label: "Nome do Locatário 2", Type: "text"},
	{Name: "ENDERECO_IMOVEL", Label: "Endereço do imóvel", Type: "text"},
	{Name: "DATA_VISTORIA", Label: "Data da vistoria", Type: "date"},
	{Name: "VISTORIADOR", Label: "Vistoriador", Type: "text"},
	{Name: "OBSERVACOES", Label: "Observações", Multiline: true},
}

func fieldLabel(name string) string {
	for _, f := range formFields {
		if f.Name == name {
			return f.Label
		}
	}
	return name
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 48*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d dias", d/(24*time.Hour))
	case d >= 2*time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d horas", d/time.Hour)
	case d == time.Hour:
		return "1 hora"
	default:
		return d.String()
	}
}
