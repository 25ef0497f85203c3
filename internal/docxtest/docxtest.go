// Package docxtest builds small DOCX packages and images for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	Namespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"`

	contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
		`</Types>`

	packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
		`</Relationships>`

	styles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:style w:type="paragraph" w:styleId="Normal"><w:name w:val="Normal"/></w:style></w:styles>`
)

// DocumentXML wraps body content in a complete main document part.
func DocumentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document ` + Namespaces + `><w:body>` + body +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`
}

// Build returns a DOCX package whose body holds the given markup.
func Build(body string) []byte {
	return BuildParts(map[string]string{
		"[Content_Types].xml":          contentTypes,
		"_rels/.rels":                  packageRels,
		"word/_rels/document.xml.rels": documentRels,
		"word/styles.xml":              styles,
		"word/document.xml":            DocumentXML(body),
	})
}

// BuildParts returns a package holding exactly the given parts. The main
// document part, when present, is written first.
func BuildParts(parts map[string]string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	names := []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}
	for name := range parts {
		if name != names[0] && name != names[1] && name != names[2] {
			names = append(names, name)
		}
	}
	for _, name := range names {
		content, ok := parts[name]
		if !ok {
			continue
		}
		f, _ := w.Create(name)
		_, _ = f.Write([]byte(content))
	}
	_ = w.Close()
	return buf.Bytes()
}

// WriteTemplate writes a DOCX with the given body into dir and returns its path.
func WriteTemplate(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, Build(body), 0o644))
	return path
}

// P builds a paragraph with one run per text.
func P(texts ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, text := range texts {
		sb.WriteString(R(text))
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// R builds a run holding text.
func R(text string) string {
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(text))
	return `<w:r><w:t xml:space="preserve">` + esc.String() + `</w:t></w:r>`
}

// Table builds a one-row table with one paragraph per cell.
func Table(cells ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:tbl><w:tblPr/><w:tr>")
	for _, c := range cells {
		sb.WriteString("<w:tc>" + P(c) + "</w:tc>")
	}
	sb.WriteString("</w:tr></w:tbl>")
	return sb.String()
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

// PNG encodes a w x h image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

// JPEG encodes a w x h image.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

// WriteFile writes data into dir and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// Package is an opened DOCX for assertions.
type Package struct {
	parts map[string][]byte
	order []string
}

// Open reads every part of the DOCX at path.
func Open(t testing.TB, path string) *Package {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return Read(t, data)
}

// Read reads every part of an in-memory DOCX.
func Read(t testing.TB, data []byte) *Package {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	pkg := &Package{parts: make(map[string][]byte)}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		pkg.parts[f.Name] = content
		pkg.order = append(pkg.order, f.Name)
	}
	return pkg
}

// Part returns a part's content, or "" when absent.
func (p *Package) Part(name string) string {
	return string(p.parts[name])
}

// Has reports whether the package holds the part.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// Names returns the part names in archive order.
func (p *Package) Names() []string {
	return p.order
}

// Document returns word/document.xml.
func (p *Package) Document() string {
	return p.Part("word/document.xml")
}
