package xml

import (
	"encoding/xml"
	"strings"
)

// Paragraph wraps a w:p element.
type Paragraph struct {
	node   *Node
	prefix string
}

// Node returns the underlying element.
func (p *Paragraph) Node() *Node {
	return p.node
}

// Runs returns the runs that are direct children of the paragraph, in order.
// Runs nested in hyperlinks, fields or content controls are not included.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	for _, n := range p.node.Elements("r") {
		out = append(out, &Run{node: n, prefix: p.prefix})
	}
	return out
}

// Text returns the concatenated text of the paragraph's runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// Clear removes all content except the paragraph properties.
func (p *Paragraph) Clear() {
	var kept []Token
	for _, c := range p.node.Children {
		if n, ok := c.(*Node); ok && n.Is("pPr") {
			kept = append(kept, n)
		}
	}
	p.node.Children = kept
}

// AddRun appends a new empty run and returns it.
func (p *Paragraph) AddRun() *Run {
	n := &Node{Name: xmlName(p.prefix, "r")}
	p.node.Append(n)
	return &Run{node: n, prefix: p.prefix}
}

func xmlName(prefix, local string) xml.Name {
	return xml.Name{Space: prefix, Local: local}
}
