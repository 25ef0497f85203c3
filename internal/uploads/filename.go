package uploads

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// windowsReserved holds device names that cannot be used as file names on Windows.
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SecureFilename reduces a client supplied name to a safe base name made of
// ASCII letters, digits, '_', '-' and '.'. Accents are dropped ("Área" ->
// "Area"), separators and whitespace become '_', and leading or trailing
// dots and underscores are trimmed. The result may be empty.
func SecureFilename(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	folded = strings.NewReplacer("/", " ", `\`, " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")

	var sb strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			sb.WriteRune(r)
		}
	}
	out := strings.Trim(sb.String(), "._")

	if base, _, _ := strings.Cut(out, "."); windowsReserved[strings.ToUpper(base)] {
		out = "_" + out
	}
	return out
}
