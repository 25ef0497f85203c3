package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document ` + testNS + `><w:body>` + body +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, doc *Document)
	}{
		{
			name:  "paragraphs and tables",
			input: wrapBody(`<w:p><w:r><w:t>one</w:t></w:r></w:p><w:tbl><w:tr><w:tc><w:p/></w:tc></w:tr></w:tbl><w:p/>`),
			check: func(t *testing.T, doc *Document) {
				assert.Equal(t, "w", doc.Prefix())
				assert.Len(t, doc.Paragraphs(), 2)
				require.Len(t, doc.Tables(), 1)
				rows := doc.Tables()[0].Rows()
				require.Len(t, rows, 1)
				require.Len(t, rows[0].Cells(), 1)
				assert.Len(t, rows[0].Cells()[0].Paragraphs(), 1)
			},
		},
		{
			name:    "not a document",
			input:   `<w:styles ` + testNS + `/>`,
			wantErr: "missing document element",
		},
		{
			name:    "document without body",
			input:   `<w:document ` + testNS + `></w:document>`,
			wantErr: "missing body element",
		},
		{
			name:    "mismatched tags",
			input:   `<w:document ` + testNS + `><w:body></w:p></w:document>`,
			wantErr: "failed to parse XML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, doc)
		})
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	input := wrapBody(`<!-- keep me --><w:p w14:paraId="1A2B" xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml">` +
		`<w:pPr><w:jc w:val="center"/></w:pPr>` +
		`<w:bookmarkStart w:id="0" w:name="inicio"/>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve"> A &amp; B &lt;C&gt; </w:t></w:r>` +
		`<w:bookmarkEnd w:id="0"/></w:p>`)

	doc, err := ParseDocumentBytes([]byte(input))
	require.NoError(t, err)

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestDocument_MaxDocPrID(t *testing.T) {
	input := wrapBody(`<w:p><w:r><w:drawing><wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
		`<wp:docPr id="7" name="Picture 7"/></wp:inline></w:drawing></w:r></w:p>` +
		`<w:p><w:r><w:drawing><wp:anchor xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
		`<wp:docPr id="12" name="Picture 12"/></wp:anchor></w:drawing></w:r></w:p>`)

	doc, err := ParseDocumentBytes([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 12, doc.MaxDocPrID())

	empty, err := ParseDocumentBytes([]byte(wrapBody(`<w:p/>`)))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.MaxDocPrID())
}

func TestParagraph_TextAndClear(t *testing.T) {
	input := wrapBody(`<w:p><w:pPr><w:pStyle w:val="Titulo"/></w:pPr>` +
		`<w:r><w:t>{{IMAGENS_</w:t></w:r><w:proofErr w:type="spellStart"/><w:r><w:t>SALA}}</w:t></w:r></w:p>`)

	doc, err := ParseDocumentBytes([]byte(input))
	require.NoError(t, err)
	p := doc.Paragraphs()[0]
	assert.Equal(t, "{{IMAGENS_SALA}}", p.Text())

	p.Clear()
	assert.Equal(t, "", p.Text())
	require.Len(t, p.Node().Children, 1)
	assert.True(t, p.Node().Children[0].(*Node).Is("pPr"))

	r := p.AddRun()
	r.SetText("novo")
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), `<w:p><w:pPr><w:pStyle w:val="Titulo"/></w:pPr><w:r><w:t>novo</w:t></w:r></w:p>`)
}

func TestParseFragment(t *testing.T) {
	n, err := ParseFragment(`<a:blip xmlns:a="urn:a" r:embed="rId3"/>`)
	require.NoError(t, err)
	assert.Equal(t, "a:blip", n.QName())
	v, ok := n.GetAttr("r:embed")
	assert.True(t, ok)
	assert.Equal(t, "rId3", v)

	_, err = ParseFragment(`<a/><b/>`)
	assert.Error(t, err)

	_, err = ParseFragment(`<!-- nothing -->`)
	assert.Error(t, err)
}
