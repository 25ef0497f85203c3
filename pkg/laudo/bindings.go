package laudo

import (
	"sort"
	"strings"
)

// Token wraps a field name in the placeholder delimiters: "NOME" -> "{{NOME}}".
func Token(name string) string {
	return "{{" + name + "}}"
}

// TextBindings maps a placeholder token to the text that replaces it.
type TextBindings map[string]string

// BindText builds text bindings from submitted fields, one token per field name.
func BindText(fields map[string]string) TextBindings {
	b := make(TextBindings, len(fields))
	for name, value := range fields {
		if name == "" {
			continue
		}
		b[Token(name)] = value
	}
	return b
}

// tokens returns the bound tokens in a stable order.
func (b TextBindings) tokens() []string {
	out := make([]string, 0, len(b))
	for tok := range b {
		if tok != "" {
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}

// ImageBindings maps a category to its image paths, in upload order.
type ImageBindings map[Category][]string

// Add appends an image path to a category.
func (b ImageBindings) Add(c Category, path string) {
	b[c] = append(b[c], path)
}

// Count returns the total number of bound images.
func (b ImageBindings) Count() int {
	n := 0
	for _, paths := range b {
		n += len(paths)
	}
	return n
}

// matching returns the category whose marker equals text exactly.
func (b ImageBindings) matching(text string) (Category, bool) {
	if !strings.HasPrefix(text, "{{IMAGENS_") {
		return 0, false
	}
	for _, c := range Categories() {
		if _, ok := b[c]; ok && text == c.Marker() {
			return c, true
		}
	}
	return 0, false
}

// ValidateRequired checks that every required field has a non-blank value.
func ValidateRequired(fields map[string]string, required []string) error {
	var issues []ValidationIssue
	for _, name := range required {
		if strings.TrimSpace(fields[name]) == "" {
			issues = append(issues, ValidationIssue{Field: name, Message: "is required"})
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
