package xml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstRun(t *testing.T, runXML string) (*Document, *Run) {
	t.Helper()
	doc, err := ParseDocumentBytes([]byte(wrapBody(`<w:p>` + runXML + `</w:p>`)))
	require.NoError(t, err)
	runs := doc.Paragraphs()[0].Runs()
	require.NotEmpty(t, runs)
	return doc, runs[0]
}

func TestRun_Text(t *testing.T) {
	tests := []struct {
		name string
		run  string
		want string
	}{
		{"plain", `<w:r><w:t>Maria</w:t></w:r>`, "Maria"},
		{"several text nodes", `<w:r><w:t>Ma</w:t><w:t>ria</w:t></w:r>`, "Maria"},
		{"tab and break", `<w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r>`, "a\tb\nc"},
		{"page break ignored", `<w:r><w:t>a</w:t><w:br w:type="page"/></w:r>`, "a"},
		{"carriage return", `<w:r><w:t>a</w:t><w:cr/></w:r>`, "a\n"},
		{"properties ignored", `<w:r><w:rPr><w:i/></w:rPr><w:t>x</w:t></w:r>`, "x"},
		{"empty", `<w:r/>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := firstRun(t, tt.run)
			assert.Equal(t, tt.want, r.Text())
		})
	}
}

func TestRun_SetText(t *testing.T) {
	tests := []struct {
		name string
		run  string
		text string
		want string
	}{
		{
			name: "keeps run properties",
			run:  `<w:r><w:rPr><w:b/><w:sz w:val="24"/></w:rPr><w:t>{{NOME}}</w:t></w:r>`,
			text: "Maria Silva",
			want: `<w:r><w:rPr><w:b/><w:sz w:val="24"/></w:rPr><w:t>Maria Silva</w:t></w:r>`,
		},
		{
			name: "preserves surrounding spaces",
			run:  `<w:r><w:t>x</w:t></w:r>`,
			text: " Rua A, 10 ",
			want: `<w:r><w:t xml:space="preserve"> Rua A, 10 </w:t></w:r>`,
		},
		{
			name: "tabs and newlines become elements",
			run:  `<w:r><w:t>x</w:t></w:r>`,
			text: "a\tb\nc",
			want: `<w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r>`,
		},
		{
			name: "other children stay in place",
			run:  `<w:r><w:rPr><w:i/></w:rPr><w:t>old</w:t><w:lastRenderedPageBreak/></w:r>`,
			text: "new",
			want: `<w:r><w:rPr><w:i/></w:rPr><w:t>new</w:t><w:lastRenderedPageBreak/></w:r>`,
		},
		{
			name: "markup characters are escaped",
			run:  `<w:r><w:t>x</w:t></w:r>`,
			text: "A & B <C>",
			want: `<w:r><w:t>A &amp; B &lt;C&gt;</w:t></w:r>`,
		},
		{
			name: "empty text leaves no text node",
			run:  `<w:r><w:rPr><w:i/></w:rPr><w:t>x</w:t></w:r>`,
			text: "",
			want: `<w:r><w:rPr><w:i/></w:rPr></w:r>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, r := firstRun(t, tt.run)
			r.SetText(tt.text)
			assert.Equal(t, tt.text, r.Text())

			out, err := doc.Bytes()
			require.NoError(t, err)
			assert.Contains(t, string(out), tt.want)
		})
	}
}

func TestRun_SetTextReplacesInvalidCharacters(t *testing.T) {
	doc, r := firstRun(t, `<w:r><w:t>x</w:t></w:r>`)
	r.SetText("a\x01b")

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "<w:t>a�b</w:t>")

	_, err = ParseDocumentBytes(out)
	require.NoError(t, err)
}
