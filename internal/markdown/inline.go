package markdown

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// DefaultBadgeType is used when a badge names no type.
const DefaultBadgeType = "default"

var badgeRe = regexp.MustCompile(`^:badge\[([^\]\n]+)\](?:\{([^}\n]*)\})?`)

// KindBadge is the node kind of badges.
var KindBadge = ast.NewNodeKind("Badge")

// Badge is an inline label written :badge[text]{type=success}.
type Badge struct {
	ast.BaseInline
	Label   string
	Variant string
}

func (n *Badge) Kind() ast.NodeKind { return KindBadge }

func (n *Badge) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Label":   n.Label,
		"Variant": n.Variant,
	}, nil)
}

type badgeParser struct{}

func (p *badgeParser) Trigger() []byte {
	return []byte{':'}
}

func (p *badgeParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := badgeRe.FindSubmatch(line)
	if m == nil {
		return nil
	}
	node := &Badge{
		Label:   string(m[1]),
		Variant: attrType(string(m[2]), DefaultBadgeType),
	}
	block.Advance(len(m[0]))
	return node
}

var spoilerDelim = []byte("!!!")

// KindSpoiler is the node kind of spoilers.
var KindSpoiler = ast.NewNodeKind("Spoiler")

// Spoiler is hidden text written !!!text!!!. Its children are inline
// content.
type Spoiler struct {
	ast.BaseInline
}

func (n *Spoiler) Kind() ast.NodeKind { return KindSpoiler }

func (n *Spoiler) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type spoilerParser struct{}

func (p *spoilerParser) Trigger() []byte {
	return []byte{'!'}
}

func (p *spoilerParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	if !bytes.HasPrefix(line, spoilerDelim) {
		return nil
	}
	body := line[len(spoilerDelim):]
	end := bytes.Index(body, spoilerDelim)
	if end <= 0 || bytes.IndexByte(body[:end], '\n') >= 0 {
		return nil
	}
	node := &Spoiler{}
	start := segment.Start + len(spoilerDelim)
	node.AppendChild(node, ast.NewTextSegment(text.NewSegment(start, start+end)))
	block.Advance(len(spoilerDelim)*2 + end)
	return node
}
