// Package xml models the parts of a WordprocessingML main document that the
// report generator edits.
//
// A part is parsed into a generic element tree (Node) that keeps prefixes,
// attribute order, comments and processing instructions, so writing it back
// reproduces everything that was not edited. On top of the tree sit thin
// views for the elements that matter here:
//
//   - node.go: the element tree, the parser and the writer
//   - document.go: Document, the w:document root and its w:body
//   - paragraph.go: Paragraph (w:p) with its text, clearing and new runs
//   - run.go: Run (w:r) with text read and write that keep w:rPr
//   - table.go: Table, Row and Cell (w:tbl, w:tr, w:tc)
//
// Text follows the usual reading of a run: w:t contributes its characters,
// w:tab a tab and w:br or w:cr a newline. A paragraph's text is the
// concatenation of its direct runs.
//
// Example:
//
//	doc, err := xml.ParseDocumentBytes(part)
//	if err != nil {
//	    return err
//	}
//	for _, p := range doc.Paragraphs() {
//	    for _, r := range p.Runs() {
//	        r.SetText(strings.ReplaceAll(r.Text(), "{{NOME}}", "Maria"))
//	    }
//	}
package xml
