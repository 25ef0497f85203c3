package laudo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	docxml "github.com/vistoriadocs/laudo/pkg/laudo/xml"
)

// Document is a template loaded into memory for one generation. It is edited
// in place and written to a new file; the source is never modified.
type Document struct {
	path   string
	reader *DocxReader
	main   *docxml.Document
	rels   *relationshipsPart
	types  *contentTypesPart
	media  []mediaPart

	docPrID  int
	imageSeq int
}

type mediaPart struct {
	name string
	data []byte
}

// OpenDocument loads a DOCX file. A missing file yields an error matching
// ErrTemplateMissing.
func OpenDocument(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewDocumentError("open", path, fmt.Errorf("%w: %w", ErrTemplateMissing, err))
		}
		return nil, NewDocumentError("open", path, err)
	}

	doc, err := ReadDocument(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		var de *DocumentError
		if errors.As(err, &de) {
			de.Path = path
		}
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// ReadDocument loads a DOCX package from r.
func ReadDocument(r io.ReaderAt, size int64) (*Document, error) {
	reader, err := NewDocxReader(r, size)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}

	part, err := reader.GetPart(documentPartName)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	main, err := docxml.ParseDocumentBytes(part)
	if err != nil {
		return nil, NewDocumentError("parse", "", fmt.Errorf("%s: %w", documentPartName, err))
	}

	doc := &Document{reader: reader, main: main}

	if reader.HasPart(documentRelsPartName) {
		data, err := reader.GetPart(documentRelsPartName)
		if err != nil {
			return nil, NewDocumentError("read", "", err)
		}
		if doc.rels, err = parseRelationshipsPart(data); err != nil {
			return nil, NewDocumentError("parse", "", fmt.Errorf("%s: %w", documentRelsPartName, err))
		}
	}

	if reader.HasPart(contentTypesPartName) {
		data, err := reader.GetPart(contentTypesPartName)
		if err != nil {
			return nil, NewDocumentError("read", "", err)
		}
		if doc.types, err = parseContentTypesPart(data); err != nil {
			return nil, NewDocumentError("parse", "", fmt.Errorf("%s: %w", contentTypesPartName, err))
		}
	}

	doc.docPrID = main.MaxDocPrID()
	return doc, nil
}

// Path returns the file the document was loaded from, if any.
func (d *Document) Path() string {
	return d.path
}

// Content returns the main document part.
func (d *Document) Content() *docxml.Document {
	return d.main
}

// Relationships returns the relationships of the main document part,
// including the ones added since loading.
func (d *Document) Relationships() []Relationship {
	if d.rels == nil {
		return nil
	}
	return d.rels.relationships()
}

// paragraphs returns the body paragraphs followed by the paragraphs of every
// cell of every top-level table.
func (d *Document) paragraphs() []*docxml.Paragraph {
	out := d.main.Paragraphs()
	for _, tbl := range d.main.Tables() {
		for _, row := range tbl.Rows() {
			for _, cell := range row.Cells() {
				out = append(out, cell.Paragraphs()...)
			}
		}
	}
	return out
}
