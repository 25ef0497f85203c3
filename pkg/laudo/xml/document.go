package xml

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Document is a parsed word/document.xml. Everything outside the paragraphs
// and runs that are edited (section properties, bookmarks, namespace
// declarations, the XML declaration) is kept as parsed and written back as is.
type Document struct {
	tokens []Token
	root   *Node
	body   *Node
	prefix string
}

// ParseDocument parses a main document part.
func ParseDocument(r io.Reader) (*Document, error) {
	tokens, err := Parse(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{tokens: tokens}
	for _, t := range tokens {
		if n, ok := t.(*Node); ok {
			doc.root = n
			break
		}
	}
	if !doc.root.Is("document") {
		return nil, fmt.Errorf("not a WordprocessingML document: missing document element")
	}
	doc.body = doc.root.First("body")
	if doc.body == nil {
		return nil, fmt.Errorf("not a WordprocessingML document: missing body element")
	}
	doc.prefix = doc.root.Name.Space
	return doc, nil
}

// ParseDocumentBytes parses a main document part held in memory.
func ParseDocumentBytes(data []byte) (*Document, error) {
	return ParseDocument(bytes.NewReader(data))
}

// Prefix returns the prefix bound to the WordprocessingML namespace, usually "w".
func (d *Document) Prefix() string {
	return d.prefix
}

// Root returns the document element.
func (d *Document) Root() *Node {
	return d.root
}

// Body returns the body element.
func (d *Document) Body() *Node {
	return d.body
}

// Paragraphs returns the paragraphs that are direct children of the body.
func (d *Document) Paragraphs() []*Paragraph {
	return paragraphsOf(d.body, d.prefix)
}

// Tables returns the tables that are direct children of the body.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, n := range d.body.Elements("tbl") {
		out = append(out, &Table{node: n, prefix: d.prefix})
	}
	return out
}

// MaxDocPrID returns the highest numeric wp:docPr id in the document, or 0.
func (d *Document) MaxDocPrID() int {
	highest := 0
	d.root.Walk(func(n *Node) {
		if !n.Is("docPr") {
			return
		}
		if v, ok := n.GetAttr("id"); ok {
			if id, err := strconv.Atoi(v); err == nil && id > highest {
				highest = id
			}
		}
	})
	return highest
}

// WriteTo serializes the document, XML declaration included.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := Write(cw, d.tokens)
	return cw.n, err
}

// Bytes serializes the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	return Marshal(d.tokens)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func paragraphsOf(parent *Node, prefix string) []*Paragraph {
	var out []*Paragraph
	for _, n := range parent.Elements("p") {
		out = append(out, &Paragraph{node: n, prefix: prefix})
	}
	return out
}
