package laudo

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	docxml "github.com/vistoriadocs/laudo/pkg/laudo/xml"
)

const (
	documentPartName     = "word/document.xml"
	documentRelsPartName = "word/_rels/document.xml.rels"
	contentTypesPartName = "[Content_Types].xml"

	relationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
	contentTypesNamespace  = "http://schemas.openxmlformats.org/package/2006/content-types"
	imageRelationshipType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// DocxReader handles reading the parts of a DOCX package
type DocxReader struct {
	reader *zip.Reader
	Parts  map[string]*zip.File
}

// Relationship represents a relationship in the DOCX package
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// NewDocxReader creates a new DOCX reader
func NewDocxReader(r io.ReaderAt, size int64) (*DocxReader, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}

	dr := &DocxReader{
		reader: zipReader,
		Parts:  make(map[string]*zip.File, len(zipReader.File)),
	}
	for _, file := range zipReader.File {
		dr.Parts[file.Name] = file
	}

	if _, ok := dr.Parts[documentPartName]; !ok {
		return nil, fmt.Errorf("not a valid DOCX file: missing %s", documentPartName)
	}
	return dr, nil
}

// Files returns the package entries in archive order.
func (dr *DocxReader) Files() []*zip.File {
	return dr.reader.File
}

// HasPart reports whether the package contains the named part.
func (dr *DocxReader) HasPart(partName string) bool {
	_, ok := dr.Parts[partName]
	return ok
}

// GetPart retrieves the content of a specific part
func (dr *DocxReader) GetPart(partName string) ([]byte, error) {
	file, ok := dr.Parts[partName]
	if !ok {
		return nil, fmt.Errorf("part %s not found", partName)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", partName, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", partName, err)
	}
	return content, nil
}

// relationshipsPart is an editable relationships part. Existing entries and
// attributes are kept as parsed.
type relationshipsPart struct {
	tokens []docxml.Token
	root   *docxml.Node
	dirty  bool
}

func newRelationshipsPart() *relationshipsPart {
	root := docxml.NewNode("Relationships", "xmlns", relationshipsNamespace)
	return &relationshipsPart{
		tokens: []docxml.Token{docxml.Raw(strings.TrimSuffix(xmlHeader, "\n")), docxml.CharData("\n"), root},
		root:   root,
		dirty:  true,
	}
}

func parseRelationshipsPart(data []byte) (*relationshipsPart, error) {
	tokens, err := docxml.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if n, ok := t.(*docxml.Node); ok && n.Is("Relationships") {
			return &relationshipsPart{tokens: tokens, root: n}, nil
		}
	}
	return nil, fmt.Errorf("missing Relationships element")
}

func (p *relationshipsPart) relationships() []Relationship {
	var out []Relationship
	for _, n := range p.root.Elements("Relationship") {
		var rel Relationship
		rel.ID, _ = n.GetAttr("Id")
		rel.Type, _ = n.GetAttr("Type")
		rel.Target, _ = n.GetAttr("Target")
		rel.TargetMode, _ = n.GetAttr("TargetMode")
		out = append(out, rel)
	}
	return out
}

// nextID returns the next free "rIdN".
func (p *relationshipsPart) nextID() string {
	maxID := 0
	for _, rel := range p.relationships() {
		if strings.HasPrefix(rel.ID, "rId") {
			if id, err := strconv.Atoi(rel.ID[3:]); err == nil && id > maxID {
				maxID = id
			}
		}
	}
	return fmt.Sprintf("rId%d", maxID+1)
}

// add appends a relationship under the given id.
func (p *relationshipsPart) add(id, relType, target string) {
	p.root.Append(docxml.NewNode("Relationship", "Id", id, "Type", relType, "Target", target))
	p.dirty = true
}

func (p *relationshipsPart) bytes() ([]byte, error) {
	return docxml.Marshal(p.tokens)
}

// contentTypesPart is an editable [Content_Types].xml.
type contentTypesPart struct {
	tokens []docxml.Token
	root   *docxml.Node
	dirty  bool
}

func parseContentTypesPart(data []byte) (*contentTypesPart, error) {
	tokens, err := docxml.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if n, ok := t.(*docxml.Node); ok && n.Is("Types") {
			return &contentTypesPart{tokens: tokens, root: n}, nil
		}
	}
	return nil, fmt.Errorf("missing Types element")
}

func newContentTypesPart() *contentTypesPart {
	root := docxml.NewNode("Types", "xmlns", contentTypesNamespace)
	root.Append(
		docxml.NewNode("Default", "Extension", "rels", "ContentType", "application/vnd.openxmlformats-package.relationships+xml"),
		docxml.NewNode("Default", "Extension", "xml", "ContentType", "application/xml"),
		docxml.NewNode("Override", "PartName", "/"+documentPartName,
			"ContentType", "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"),
	)
	return &contentTypesPart{
		tokens: []docxml.Token{docxml.Raw(strings.TrimSuffix(xmlHeader, "\n")), docxml.CharData("\n"), root},
		root:   root,
		dirty:  true,
	}
}

// hasDefault reports whether an extension is registered, ignoring case.
func (p *contentTypesPart) hasDefault(ext string) bool {
	for _, n := range p.root.Elements("Default") {
		if v, _ := n.GetAttr("Extension"); strings.EqualFold(v, ext) {
			return true
		}
	}
	return false
}

// ensureDefault registers an extension unless it is already known. New
// entries go after the last existing Default.
func (p *contentTypesPart) ensureDefault(ext, contentType string) {
	if p.hasDefault(ext) {
		return
	}
	entry := docxml.NewNode("Default", "Extension", ext, "ContentType", contentType)
	at := 0
	for i, c := range p.root.Children {
		if n, ok := c.(*docxml.Node); ok && n.Is("Default") {
			at = i + 1
		}
	}
	children := make([]docxml.Token, 0, len(p.root.Children)+1)
	children = append(children, p.root.Children[:at]...)
	children = append(children, entry)
	children = append(children, p.root.Children[at:]...)
	p.root.Children = children
	p.dirty = true
}

func (p *contentTypesPart) bytes() ([]byte, error) {
	return docxml.Marshal(p.tokens)
}
