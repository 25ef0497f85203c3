package xml

// Table wraps a w:tbl element.
type Table struct {
	node   *Node
	prefix string
}

// Row wraps a w:tr element.
type Row struct {
	node   *Node
	prefix string
}

// Cell wraps a w:tc element.
type Cell struct {
	node   *Node
	prefix string
}

// Rows returns the table rows in order.
func (t *Table) Rows() []*Row {
	var out []*Row
	for _, n := range t.node.Elements("tr") {
		out = append(out, &Row{node: n, prefix: t.prefix})
	}
	return out
}

// Cells returns the row's cells in order. A merged cell appears once.
func (r *Row) Cells() []*Cell {
	var out []*Cell
	for _, n := range r.node.Elements("tc") {
		out = append(out, &Cell{node: n, prefix: r.prefix})
	}
	return out
}

// Paragraphs returns the paragraphs that are direct children of the cell.
// Paragraphs of tables nested in the cell are not included.
func (c *Cell) Paragraphs() []*Paragraph {
	return paragraphsOf(c.node, c.prefix)
}
