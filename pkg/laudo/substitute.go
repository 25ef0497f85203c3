package laudo

import (
	"strings"

	docxml "github.com/vistoriadocs/laudo/pkg/laudo/xml"
)

// Substitute replaces bound tokens in the body paragraphs and in the
// paragraphs of top-level table cells, and returns the number of
// occurrences replaced.
//
// Replacement happens inside single runs. A token whose characters are spread
// over several runs, as Word often does after editing or spell checking, is
// left as it is. Unbound tokens stay as literal text.
func (d *Document) Substitute(b TextBindings) int {
	if len(b) == 0 {
		return 0
	}
	tokens := b.tokens()

	replaced := 0
	for _, p := range d.paragraphs() {
		replaced += substituteParagraph(p, tokens, b)
	}
	return replaced
}

func substituteParagraph(p *docxml.Paragraph, tokens []string, b TextBindings) int {
	replaced := 0
	for _, tok := range tokens {
		if !strings.Contains(p.Text(), tok) {
			continue
		}
		for _, r := range p.Runs() {
			text := r.Text()
			if n := strings.Count(text, tok); n > 0 {
				r.SetText(strings.ReplaceAll(text, tok, b[tok]))
				replaced += n
			}
		}
	}
	return replaced
}
