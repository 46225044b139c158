package render

import (
	"bytes"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// markdown is the shared goldmark instance. Raw HTML passthrough is safe
// here: the input was entity-escaped before it reaches markdown, so the
// only markup present is what the pipeline itself produced.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Linkify,
		extension.Typographer,
		mathjax.MathJax,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(true),
			),
		),
	),
	goldmark.WithRendererOptions(
		ghtml.WithUnsafe(),
	),
)

// renderMarkdown expands markdown, $/$$ math spans and fenced code blocks
// into an HTML fragment. Fences with an unknown language fall back to
// chroma's plain-text lexer rather than failing.
func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
