package xml

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Token is one item of element content: *Node, CharData or Raw.
type Token interface {
	writeTo(w *bufio.Writer) error
}

// Node is an element. Name.Space holds the prefix exactly as written in the
// source part ("w", "wp", "a", ...), never a resolved namespace URI.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []Token
}

// CharData is text content, stored unescaped.
type CharData string

// Raw is markup written back byte for byte: comments, processing
// instructions and directives.
type Raw string

// NewNode creates an element with the given prefixed name ("w:r") and attribute pairs.
func NewNode(qname string, attrs ...string) *Node {
	n := &Node{Name: splitName(qname)}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, xml.Attr{Name: splitName(attrs[i]), Value: attrs[i+1]})
	}
	return n
}

func splitName(qname string) xml.Name {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return xml.Name{Space: qname[:i], Local: qname[i+1:]}
	}
	return xml.Name{Local: qname}
}

// QName returns the prefixed name as it appears in markup.
func (n *Node) QName() string {
	return qualified(n.Name)
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// Is reports whether the element has the given local name, whatever its prefix.
func (n *Node) Is(local string) bool {
	return n != nil && n.Name.Local == local
}

// GetAttr returns the value of the attribute with the given prefixed name.
func (n *Node) GetAttr(qname string) (string, bool) {
	for _, a := range n.Attr {
		if qualified(a.Name) == qname {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or adds the attribute with the given prefixed name.
func (n *Node) SetAttr(qname, value string) {
	for i, a := range n.Attr {
		if qualified(a.Name) == qname {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xml.Attr{Name: splitName(qname), Value: value})
}

// Elements returns the direct child elements with the given local name.
func (n *Node) Elements(local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if el, ok := c.(*Node); ok && el.Is(local) {
			out = append(out, el)
		}
	}
	return out
}

// First returns the first direct child element with the given local name.
func (n *Node) First(local string) *Node {
	for _, c := range n.Children {
		if el, ok := c.(*Node); ok && el.Is(local) {
			return el
		}
	}
	return nil
}

// Append adds tokens at the end of the element content.
func (n *Node) Append(children ...Token) {
	n.Children = append(n.Children, children...)
}

// Walk visits n and every descendant element in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		if el, ok := c.(*Node); ok {
			el.Walk(fn)
		}
	}
}

// Parse reads a sequence of tokens into a forest. Prefixes are kept as they
// are; namespaces are never resolved, so writing the result back reproduces
// the input's namespace declarations.
func Parse(r io.Reader) ([]Token, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	var (
		top   []Token
		stack []*Node
	)
	appendToken := func(t Token) {
		if len(stack) == 0 {
			top = append(top, t)
			return
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, t)
	}

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			appendToken(n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("failed to parse XML: unexpected end element </%s>", qualified(t.Name))
			}
			open := stack[len(stack)-1]
			if open.Name != t.Name {
				return nil, fmt.Errorf("failed to parse XML: element <%s> closed by </%s>", open.QName(), qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			appendToken(CharData(string(t)))
		case xml.Comment:
			appendToken(Raw("<!--" + string(t) + "-->"))
		case xml.ProcInst:
			inst := strings.TrimSpace(string(t.Inst))
			if inst != "" {
				inst = " " + inst
			}
			appendToken(Raw("<?" + t.Target + inst + "?>"))
		case xml.Directive:
			appendToken(Raw("<!" + string(t) + ">"))
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("failed to parse XML: element <%s> is not closed", stack[len(stack)-1].QName())
	}
	return top, nil
}

// ParseFragment parses markup holding exactly one root element.
func ParseFragment(s string) (*Node, error) {
	tokens, err := Parse(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	var root *Node
	for _, t := range tokens {
		if n, ok := t.(*Node); ok {
			if root != nil {
				return nil, fmt.Errorf("fragment has more than one root element")
			}
			root = n
		}
	}
	if root == nil {
		return nil, fmt.Errorf("fragment has no root element")
	}
	return root, nil
}

// Write serializes tokens to w.
func Write(w io.Writer, tokens []Token) error {
	bw := bufio.NewWriter(w)
	for _, t := range tokens {
		if err := t.writeTo(bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Marshal serializes tokens into a byte slice.
func Marshal(tokens []Token) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, tokens); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeTo(w *bufio.Writer) error {
	w.WriteByte('<')
	w.WriteString(n.QName())
	for _, a := range n.Attr {
		w.WriteByte(' ')
		w.WriteString(qualified(a.Name))
		w.WriteString(`="`)
		if err := escapeAttr(w, a.Value); err != nil {
			return err
		}
		w.WriteByte('"')
	}
	if len(n.Children) == 0 {
		_, err := w.WriteString("/>")
		return err
	}
	w.WriteByte('>')
	for _, c := range n.Children {
		if err := c.writeTo(w); err != nil {
			return err
		}
	}
	w.WriteString("</")
	w.WriteString(n.QName())
	return w.WriteByte('>')
}

func (c CharData) writeTo(w *bufio.Writer) error {
	return escapeText(w, string(c))
}

func (r Raw) writeTo(w *bufio.Writer) error {
	_, err := w.WriteString(string(r))
	return err
}

// escapeText escapes character data. Newlines and tabs are kept literal so
// whitespace between elements round-trips unchanged; characters XML cannot
// carry become U+FFFD.
func escapeText(w *bufio.Writer, s string) error {
	last := 0
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		var esc string
		switch {
		case r == '&':
			esc = "&amp;"
		case r == '<':
			esc = "&lt;"
		case r == '>':
			esc = "&gt;"
		case r == '\r':
			esc = "&#xD;"
		case r == utf8.RuneError && width == 1, !isXMLChar(r):
			esc = "\uFFFD"
		}
		if esc != "" {
			w.WriteString(s[last:i])
			w.WriteString(esc)
			last = i + width
		}
		i += width
	}
	_, err := w.WriteString(s[last:])
	return err
}

func escapeAttr(w *bufio.Writer, s string) error {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
