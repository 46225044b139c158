package render

import "strings"

const (
	inlineOpen   = `\(`
	inlineClose  = `\)`
	displayOpen  = `\[`
	displayClose = `\]`
)

// NormalizeMathDelimiters rewrites \(..\) and \[..\] math spans into the
// $-delimited convention the markdown math extension understands. A span
// containing a newline becomes $$..$$, otherwise $..$. An open token with
// no matching close swallows the rest of the input as the math body.
// Text outside recognized spans passes through unchanged.
func NormalizeMathDelimiters(s string) string {
	var b strings.Builder

	for {
		inline := strings.Index(s, inlineOpen)
		display := strings.Index(s, displayOpen)

		open, closeTok := inline, inlineClose
		if open < 0 || (display >= 0 && display < open) {
			open, closeTok = display, displayClose
		}
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}

		b.WriteString(s[:open])
		rest := s[open+len(inlineOpen):]

		end := strings.Index(rest, closeTok)
		var body string
		if end < 0 {
			body, s = rest, ""
		} else {
			body, s = rest[:end], rest[end+len(closeTok):]
		}

		delim := "$"
		if strings.Contains(body, "\n") {
			delim = "$$"
		}
		b.WriteString(delim)
		b.WriteString(body)
		b.WriteString(delim)

		if end < 0 {
			return b.String()
		}
	}
}
