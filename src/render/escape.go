package render

import "strings"

// escaper neutralizes the three characters markdown could mistake for
// structural markup. Replacement happens in a single pass, so previously
// substituted entities are never rewritten.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// unescaper exactly inverts escaper. It deliberately decodes only these
// three entities; general HTML entity decoding would corrupt text the
// model authored itself.
var unescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

// EscapeText replaces literal &, < and > with their entity forms.
func EscapeText(s string) string { return escaper.Replace(s) }

// UnescapeText reverses EscapeText for exactly the three substituted
// entities.
func UnescapeText(s string) string { return unescaper.Replace(s) }
