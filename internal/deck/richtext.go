package deck

import (
	"strings"
)

// Span is a contiguous stretch of text sharing one style.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

// ParseInline splits a constrained markdown subset into styled spans. Only
// **bold**/__bold__ and *italic*/_italic_ are recognized; no nesting, no
// other constructs. Unmatched opening markers stay in the text as literals.
func ParseInline(s string) []Span {
	var spans []Span
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			spans = append(spans, Span{Text: plain.String()})
			plain.Reset()
		}
	}

	i := 0
	for i < len(s) {
		if marker, width, bold := openingMarker(s, i); marker != "" {
			if end := strings.Index(s[i+width:], marker); end > 0 {
				flush()
				spans = append(spans, Span{
					Text:   s[i+width : i+width+end],
					Bold:   bold,
					Italic: !bold,
				})
				i += width + end + width
				continue
			}
		}
		plain.WriteByte(s[i])
		i++
	}
	flush()

	if spans == nil {
		return []Span{{Text: s}}
	}
	return spans
}

// openingMarker reports the marker starting at position i, preferring the
// two-character bold forms over their single-character italic prefixes.
func openingMarker(s string, i int) (marker string, width int, bold bool) {
	rest := s[i:]
	switch {
	case strings.HasPrefix(rest, "**"):
		return "**", 2, true
	case strings.HasPrefix(rest, "__"):
		return "__", 2, true
	case strings.HasPrefix(rest, "*"):
		return "*", 1, false
	case strings.HasPrefix(rest, "_"):
		return "_", 1, false
	}
	return "", 0, false
}

// PlainText collapses spans back to their unstyled text.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, sp := range spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}
