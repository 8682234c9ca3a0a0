package validation

import "strings"

// entities we emit; SanitizeText never re-escapes these, which makes it
// idempotent on already-sanitized input.
var knownEntities = []string{"amp;", "lt;", "gt;", "quot;", "#39;"}

// SanitizeText trims the string, caps it at max runes and HTML-escapes
// & < > " ' so stored text is safe to render in question and option lists.
func SanitizeText(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 {
		if r := []rune(s); len(r) > max {
			s = strings.TrimSpace(string(r[:max]))
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if startsEntity(s[i+1:]) {
				b.WriteByte(c)
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func startsEntity(rest string) bool {
	for _, e := range knownEntities {
		if strings.HasPrefix(rest, e) {
			return true
		}
	}
	return false
}

// SanitizeOptions sanitizes each option and drops entries that are blank
// after trimming. Order is preserved.
func SanitizeOptions(options []string, max int) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		s := SanitizeText(opt, max)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
