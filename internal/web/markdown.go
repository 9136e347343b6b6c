package web

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// headingLevelKey carries the page heading level a body is nested under.
var headingLevelKey = parser.NewContextKey()

// nestHeadings pushes headings in author content below the page's own, so a
// "# Setup" inside a lesson never outranks the lesson title.
type nestHeadings struct{}

func (nestHeadings) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	under, _ := pc.Get(headingLevelKey).(int)
	if under <= 0 {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			h.Level = min(h.Level+under, 6)
		}
		return ast.WalkContinue, nil
	})
}

// Raw HTML in lesson bodies is not passed through (no html.WithUnsafe).
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM, emoji.Emoji),
	goldmark.WithParserOptions(parser.WithASTTransformers(util.Prioritized(nestHeadings{}, 100))),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// renderMarkdownHTML renders a module description or lesson body placed under an
// <h{under}> on the page.
func renderMarkdownHTML(src string, under int) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	pc := parser.NewContext()
	pc.Set(headingLevelKey, under)
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b, parser.WithContext(pc)); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(b.String())
}
