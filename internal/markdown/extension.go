package markdown

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Extension adds display and inline math, callouts, badges, spoilers and
// chroma code highlighting to a goldmark instance.
type Extension struct {
	// CodeStyle is the chroma style used when classes are disabled.
	CodeStyle string
	// CodeClasses emits CSS classes instead of inline styles.
	CodeClasses bool
}

func (e *Extension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&mathBlockParser{}, 650),
			util.Prioritized(&calloutParser{}, 750),
		),
		parser.WithInlineParsers(
			util.Prioritized(&inlineMathParser{}, 150),
			util.Prioritized(&badgeParser{}, 150),
			util.Prioritized(&spoilerParser{}, 150),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&nodeRenderer{}, 500),
		util.Prioritized(newCodeRenderer(e.CodeStyle, e.CodeClasses), 200),
	))
}

type nodeRenderer struct{}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathBlock, r.renderMathBlock)
	reg.Register(KindInlineMath, r.renderInlineMath)
	reg.Register(KindCallout, r.renderCallout)
	reg.Register(KindBadge, r.renderBadge)
	reg.Register(KindSpoiler, r.renderSpoiler)
}

func (r *nodeRenderer) renderMathBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<div class="math-display">`)
	_, _ = w.Write(util.EscapeHTML(n.(*MathBlock).TeX(source)))
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderInlineMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<span class="math-inline">`)
	_, _ = w.Write(util.EscapeHTML(n.(*InlineMath).Segment.Value(source)))
	_, _ = w.WriteString("</span>")
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderCallout(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	node := n.(*Callout)
	if !entering {
		_, _ = w.WriteString("</div>\n</div>\n")
		return ast.WalkContinue, nil
	}
	_, _ = fmt.Fprintf(w, "<div class=\"md-callout md-callout-%s\">\n", node.Variant)
	if node.Title != "" {
		_, _ = w.WriteString(`<div class="md-callout-title">`)
		_, _ = w.Write(util.EscapeHTML([]byte(node.Title)))
		_, _ = w.WriteString("</div>\n")
	}
	_, _ = w.WriteString("<div class=\"md-callout-content\">\n")
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderBadge(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	node := n.(*Badge)
	_, _ = fmt.Fprintf(w, `<span class="md-badge md-badge-%s">`, node.Variant)
	_, _ = w.Write(util.EscapeHTML([]byte(node.Label)))
	_, _ = w.WriteString("</span>")
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderSpoiler(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(`<span class="md-spoiler">`)
	} else {
		_, _ = w.WriteString("</span>")
	}
	return ast.WalkContinue, nil
}
