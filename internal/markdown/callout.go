package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// DefaultCalloutType is used when a callout names no type.
const DefaultCalloutType = "info"

var (
	calloutOpenRe  = regexp.MustCompile(`^:::callout(?:\[([^\]]*)\])?(?:\{([^}]*)\})?$`)
	calloutCloseRe = regexp.MustCompile(`^:::$`)
	attrRe         = regexp.MustCompile(`([A-Za-z][\w-]*)=("[^"]*"|[^\s}]+)`)
	typeRe         = regexp.MustCompile(`^[A-Za-z][\w-]*$`)
)

// KindCallout is the node kind of callout containers.
var KindCallout = ast.NewNodeKind("Callout")

// Callout is a titled container opened by ":::callout[Title]{type=warning}"
// and closed by a ":::" line. Its children are ordinary blocks.
type Callout struct {
	ast.BaseBlock
	Title   string
	Variant string
}

func (n *Callout) Kind() ast.NodeKind { return KindCallout }

func (n *Callout) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Title":   n.Title,
		"Variant": n.Variant,
	}, nil)
}

// parseAttrs reads key=value pairs from a {...} attribute list.
func parseAttrs(s string) map[string]string {
	attrs := map[string]string{}
	for _, m := range attrRe.FindAllStringSubmatch(s, -1) {
		attrs[strings.ToLower(m[1])] = strings.Trim(m[2], `"`)
	}
	return attrs
}

// attrType returns a class-safe type from an attribute list.
func attrType(s, fallback string) string {
	t := strings.ToLower(parseAttrs(s)["type"])
	if !typeRe.MatchString(t) {
		return fallback
	}
	return t
}

type calloutParser struct{}

func (b *calloutParser) Trigger() []byte {
	return []byte{':'}
}

func (b *calloutParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	m := calloutOpenRe.FindSubmatch(util.TrimRightSpace(line[pos:]))
	if m == nil {
		return nil, parser.NoChildren
	}
	node := &Callout{
		Title:   strings.TrimSpace(string(m[1])),
		Variant: attrType(string(m[2]), DefaultCalloutType),
	}
	consumeLine(reader, line, segment)
	return node, parser.HasChildren
}

func (b *calloutParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w < 4 && calloutCloseRe.Match(util.TrimRightSpace(line[pos:])) && !innerCalloutOpen(node, pc) {
		consumeLine(reader, line, segment)
		return parser.Close
	}
	return parser.Continue | parser.HasChildren
}

func (b *calloutParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *calloutParser) CanInterruptParagraph() bool { return true }

func (b *calloutParser) CanAcceptIndentedLine() bool { return false }

// innerCalloutOpen reports whether a callout nested in node is still open;
// a closing line then belongs to the innermost one.
func innerCalloutOpen(node ast.Node, pc parser.Context) bool {
	found := false
	for _, blk := range pc.OpenedBlocks() {
		if blk.Node == node {
			found = true
			continue
		}
		if found && blk.Node.Kind() == KindCallout {
			return true
		}
	}
	return false
}

// consumeLine advances past the current line up to its newline.
func consumeLine(reader text.Reader, line []byte, segment text.Segment) {
	newline := 1
	if line[len(line)-1] != '\n' {
		newline = 0
	}
	reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
}
