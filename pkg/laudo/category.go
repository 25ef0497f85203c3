package laudo

import (
	"fmt"
	"strings"
)

// Category is a room or area of the inspected property. Each category has its
// own upload field and its own marker paragraph in the template.
type Category int

const (
	Externa Category = iota
	Sala
	Cozinha
	BanheiroSocial
	Quarto1
	Quarto2
	Servico
	Fundos
	Gourmet
	BanheiroEdicula
	Laterais
)

var categoryNames = [...]string{
	Externa:         "externa",
	Sala:            "sala",
	Cozinha:         "cozinha",
	BanheiroSocial:  "banheiro_social",
	Quarto1:         "quarto1",
	Quarto2:         "quarto2",
	Servico:         "servico",
	Fundos:          "fundos",
	Gourmet:         "gourmet",
	BanheiroEdicula: "banheiro_edicula",
	Laterais:        "laterais",
}

var categoryLabels = [...]string{
	Externa:         "Área externa",
	Sala:            "Sala",
	Cozinha:         "Cozinha",
	BanheiroSocial:  "Banheiro social",
	Quarto1:         "Quarto 1",
	Quarto2:         "Quarto 2",
	Servico:         "Área de serviço",
	Fundos:          "Fundos",
	Gourmet:         "Espaço gourmet",
	BanheiroEdicula: "Banheiro da edícula",
	Laterais:        "Laterais",
}

// Categories returns every category in form order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

// ParseCategory resolves a category from its name ("banheiro_social").
func ParseCategory(name string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range categoryNames {
		if n == key {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", name)
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	return c >= 0 && int(c) < len(categoryNames)
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Label is the human readable name shown on the form.
func (c Category) Label() string {
	if !c.Valid() {
		return c.String()
	}
	return categoryLabels[c]
}

// Marker is the paragraph text that marks where the category's images go,
// e.g. "{{IMAGENS_BANHEIRO_SOCIAL}}".
func (c Category) Marker() string {
	return Token("IMAGENS_" + strings.ToUpper(c.String()))
}

// FieldName is the multipart field carrying the category's files.
func (c Category) FieldName() string {
	return "imagens_" + c.String()
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
