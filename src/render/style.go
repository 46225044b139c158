package render

import "strings"

// ParseStyleAttribute turns a semicolon-separated "property: value" style
// string into a map keyed by camelCased property names. Declarations
// without a colon are skipped.
func ParseStyleAttribute(style string) map[string]string {
	var out map[string]string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[camelCaseProperty(strings.TrimSpace(prop))] = strings.TrimSpace(val)
	}
	return out
}

// camelCaseProperty converts a kebab-case CSS property name by dropping
// each hyphen and upper-casing the letter that follows it.
func camelCaseProperty(prop string) string {
	var b strings.Builder
	b.Grow(len(prop))
	upperNext := false
	for _, r := range prop {
		if r == '-' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteString(strings.ToUpper(string(r)))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
