package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is one element of the structured render tree: either an element
// (Tag set, with attributes and ordered children) or literal text (Text
// set, Tag empty). Style holds the parsed style attribute, keyed by
// camelCased property name.
type Node struct {
	Tag      string            `json:"tag,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
	Children []*Node           `json:"children,omitempty"`
	Text     string            `json:"text,omitempty"`
}

// IsText reports whether the node is a literal text node.
func (n *Node) IsText() bool { return n.Tag == "" }

// InnerText concatenates the text content of the node and its children in
// document order.
func (n *Node) InnerText() string {
	if n.IsText() {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.InnerText())
	}
	return b.String()
}

// attrRenames maps HTML attribute names onto the rendering framework's
// property naming.
var attrRenames = map[string]string{
	"class": "className",
	"for":   "htmlFor",
}

// parseHTMLTree parses an HTML fragment into render nodes. The fragment is
// parsed in body context, so block and inline elements both survive.
func parseHTMLTree(fragment string) ([]*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(parsed))
	for _, p := range parsed {
		if n := convertNode(p); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func convertNode(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		return &Node{Text: n.Data}
	case html.ElementNode:
		node := &Node{Tag: n.Data}
		if len(n.Attr) > 0 {
			node.Attrs = make(map[string]string, len(n.Attr))
			for _, a := range n.Attr {
				name := a.Key
				if renamed, ok := attrRenames[name]; ok {
					name = renamed
				}
				node.Attrs[name] = a.Val
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := convertNode(c); child != nil {
				node.Children = append(node.Children, child)
			}
		}
		return node
	case html.CommentNode:
		// Opaque pass-through; renderers decide whether to show it.
		return &Node{Tag: "#comment", Text: n.Data}
	default:
		var raw strings.Builder
		if err := html.Render(&raw, n); err != nil {
			return nil
		}
		return &Node{Tag: "#raw", Text: raw.String()}
	}
}
