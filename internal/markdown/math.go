package markdown

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var mathDelim = []byte("$$")

// KindMathBlock is the node kind of display math.
var KindMathBlock = ast.NewNodeKind("MathBlock")

// MathBlock is a display math block delimited by $$ lines. Its lines hold
// the raw TeX source.
type MathBlock struct {
	ast.BaseBlock
	closed bool
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

func (n *MathBlock) IsRaw() bool { return true }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// TeX returns the block's source without the delimiters.
func (n *MathBlock) TeX(source []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return bytes.TrimSpace(buf.Bytes())
}

// KindInlineMath is the node kind of inline math.
var KindInlineMath = ast.NewNodeKind("InlineMath")

// InlineMath is $...$ math inside a paragraph.
type InlineMath struct {
	ast.BaseInline
	Segment text.Segment
}

func (n *InlineMath) Kind() ast.NodeKind { return KindInlineMath }

func (n *InlineMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"TeX": string(n.Segment.Value(source)),
	}, nil)
}

type mathBlockParser struct{}

func (b *mathBlockParser) Trigger() []byte {
	return []byte{'$'}
}

func (b *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], mathDelim) {
		return nil, parser.NoChildren
	}
	base := segment.Start - segment.Padding
	start := pos + len(mathDelim)
	node := &MathBlock{}
	rest := line[start:]

	// $$ x $$ on a single line
	if i := bytes.Index(rest, mathDelim); i >= 0 {
		if !util.IsBlank(rest[i+len(mathDelim):]) {
			return nil, parser.NoChildren
		}
		node.Lines().Append(text.NewSegment(base+start, base+start+i))
		node.closed = true
		return node, parser.NoChildren
	}
	if !util.IsBlank(rest) {
		node.Lines().Append(text.NewSegment(base+start, segment.Stop))
	}
	return node, parser.NoChildren
}

func (b *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*MathBlock)
	if n.closed {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w < 4 {
		if i := bytes.Index(line[pos:], mathDelim); i >= 0 && util.IsBlank(line[pos+i+len(mathDelim):]) {
			if i > 0 {
				node.Lines().Append(text.NewSegment(segment.Start+pos, segment.Start+pos+i))
			}
			newline := 1
			if line[len(line)-1] != '\n' {
				newline = 0
			}
			reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
			return parser.Close
		}
	}
	node.Lines().Append(segment)
	return parser.Continue | parser.NoChildren
}

func (b *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *mathBlockParser) CanInterruptParagraph() bool { return true }

func (b *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type inlineMathParser struct{}

func (p *inlineMathParser) Trigger() []byte {
	return []byte{'$'}
}

// Parse follows pandoc's rules: the opening $ must be followed by a
// non-space, the closing $ preceded by a non-space and not followed by a
// digit.
func (p *inlineMathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	if block.PrecendingCharacter() == '$' {
		return nil
	}
	line, segment := block.PeekLine()
	if len(line) < 3 || line[1] == '$' || util.IsSpace(line[1]) {
		return nil
	}
	for i := 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '\n':
			return nil
		case '$':
			if util.IsSpace(line[i-1]) {
				continue
			}
			if i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
				continue
			}
			if blankMath(line[1:i]) {
				return nil
			}
			node := &InlineMath{Segment: text.NewSegment(segment.Start+1, segment.Start+i)}
			block.Advance(i + 1)
			return node
		}
	}
	return nil
}

// blankMath reports whether b holds only whitespace and zero-width spaces,
// which is what guarded delimiters leave behind.
func blankMath(b []byte) bool {
	return util.IsBlank(bytes.ReplaceAll(b, []byte("\u200b"), nil))
}
