package xml

import "strings"

// Run wraps a w:r element.
type Run struct {
	node   *Node
	prefix string
}

// Node returns the underlying element.
func (r *Run) Node() *Node {
	return r.node
}

// Text returns the run's text: w:t content, w:tab as "\t" and line breaks as "\n".
func (r *Run) Text() string {
	var sb strings.Builder
	for _, c := range r.node.Children {
		n, ok := c.(*Node)
		if !ok {
			continue
		}
		switch n.Name.Local {
		case "t":
			for _, tc := range n.Children {
				if cd, ok := tc.(CharData); ok {
					sb.WriteString(string(cd))
				}
			}
		case "tab", "ptab":
			sb.WriteByte('\t')
		case "cr":
			sb.WriteByte('\n')
		case "br":
			if isLineBreak(n) {
				sb.WriteByte('\n')
			}
		case "noBreakHyphen":
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// SetText replaces the run's text content. Run properties and any other
// children keep their place; the new text goes where the first text child was.
func (r *Run) SetText(s string) {
	var (
		children []Token
		at       = -1
	)
	for _, c := range r.node.Children {
		if n, ok := c.(*Node); ok && isTextChild(n) {
			if at < 0 {
				at = len(children)
			}
			continue
		}
		children = append(children, c)
	}
	if at < 0 {
		at = len(children)
	}

	text := r.textNodes(s)
	out := make([]Token, 0, len(children)+len(text))
	out = append(out, children[:at]...)
	out = append(out, text...)
	out = append(out, children[at:]...)
	r.node.Children = out
}

// AppendChild adds an element at the end of the run.
func (r *Run) AppendChild(n *Node) {
	r.node.Append(n)
}

func (r *Run) textNodes(s string) []Token {
	var (
		out []Token
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		t := &Node{Name: xmlName(r.prefix, "t")}
		text := buf.String()
		if strings.TrimSpace(text) != text {
			t.SetAttr("xml:space", "preserve")
		}
		t.Append(CharData(text))
		out = append(out, t)
		buf.Reset()
	}
	for _, ch := range s {
		switch ch {
		case '\t':
			flush()
			out = append(out, &Node{Name: xmlName(r.prefix, "tab")})
		case '\n', '\r':
			flush()
			out = append(out, &Node{Name: xmlName(r.prefix, "br")})
		default:
			buf.WriteRune(ch)
		}
	}
	flush()
	return out
}

func isTextChild(n *Node) bool {
	switch n.Name.Local {
	case "t", "tab", "ptab", "cr", "noBreakHyphen":
		return true
	case "br":
		return isLineBreak(n)
	}
	return false
}

// isLineBreak reports whether a w:br is a text wrapping break rather than a
// page or column break.
func isLineBreak(n *Node) bool {
	for _, a := range n.Attr {
		if a.Name.Local == "type" {
			return a.Value == "textWrapping"
		}
	}
	return true
}
