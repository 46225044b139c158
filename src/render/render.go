// Package render turns untrusted assistant-authored text into a sanitized
// tree of typed nodes. The pipeline runs escape, math delimiter
// normalization, markdown expansion, HTML tree parsing, and a final
// unescape/style pass; a failure at any stage degrades to the original
// text as a single text node instead of surfacing an error.
package render

import "log/slog"

// Render runs the full content pipeline over raw message text. It always
// returns a displayable tree; it never returns an error.
func Render(raw string) *Node {
	escaped := EscapeText(raw)
	normalized := NormalizeMathDelimiters(escaped)

	fragment, err := renderMarkdown(normalized)
	if err != nil {
		slog.Warn("markdown render failed, degrading to plain text", "error", err)
		return fallbackNode(raw)
	}

	children, err := parseHTMLTree(fragment)
	if err != nil {
		slog.Warn("html tree parse failed, degrading to plain text", "error", err)
		return fallbackNode(raw)
	}

	root := &Node{Tag: "div", Children: children}
	finalizeTree(root)
	return root
}

// fallbackNode wraps the original text as plain literal content.
func fallbackNode(raw string) *Node {
	return &Node{Tag: "div", Children: []*Node{{Text: raw}}}
}

// finalizeTree is the last pipeline stage: it reverses the stage-one
// entity substitutions in every text node and lifts style attributes into
// structured maps. Everything else passes through untouched.
func finalizeTree(n *Node) {
	if n.IsText() {
		n.Text = UnescapeText(n.Text)
		return
	}

	if style, ok := n.Attrs["style"]; ok {
		n.Style = ParseStyleAttribute(style)
		delete(n.Attrs, "style")
		if len(n.Attrs) == 0 {
			n.Attrs = nil
		}
	}

	for _, c := range n.Children {
		finalizeTree(c)
	}
}
