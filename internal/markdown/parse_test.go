package markdown

import (
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func parse(t *testing.T, src string) (ast.Node, []byte) {
	t.Helper()
	source := []byte(src)
	md := goldmark.New(goldmark.WithExtensions(&Extension{}))
	return md.Parser().Parse(text.NewReader(source)), source
}

func findKind(root ast.Node, kind ast.NodeKind) []ast.Node {
	var out []ast.Node
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == kind {
			out = append(out, n)
		}
		return ast.WalkContinue, nil
	})
	return out
}

func TestMathBlockParser(t *testing.T) {
	tests := []struct {
		name  string
		input string
		tex   []string
	}{
		{"multi line", "$$\na + b\n$$\n", []string{"a + b"}},
		{"single line", "$$ c $$\n", []string{"c"}},
		{"content on opener", "$$ x\ny $$\n", []string{"x\ny"}},
		{"unclosed", "$$\nz", []string{"z"}},
		{"two blocks", "$$a$$\n\n$$\nb\n$$", []string{"a", "b"}},
		{"trailing text is not a block", "$$a$$ more\n", nil},
	}
	for _, tt := range tests {
		root, source := parse(t, tt.input)
		nodes := findKind(root, KindMathBlock)
		if len(nodes) != len(tt.tex) {
			t.Errorf("%s: %d math blocks, want %d", tt.name, len(nodes), len(tt.tex))
			continue
		}
		for i, n := range nodes {
			if got := string(n.(*MathBlock).TeX(source)); got != tt.tex[i] {
				t.Errorf("%s: TeX() = %q, want %q", tt.name, got, tt.tex[i])
			}
		}
	}
}

func TestInlineMathParser(t *testing.T) {
	tests := []struct {
		input string
		tex   []string
	}{
		{"a $x$ b", []string{"x"}},
		{"$a$ and $b$", []string{"a", "b"}},
		{"$ x$", nil},
		{"$x $", nil},
		{"$5 to $6", nil},
		{"$x$5", nil},
		{`\$x$`, nil},
		{"`$x$`", nil},
		{"$a\\$b$", []string{`a\$b`}},
	}
	for _, tt := range tests {
		root, source := parse(t, tt.input)
		nodes := findKind(root, KindInlineMath)
		if len(nodes) != len(tt.tex) {
			t.Errorf("%q: %d inline math nodes, want %d", tt.input, len(nodes), len(tt.tex))
			continue
		}
		for i, n := range nodes {
			seg := n.(*InlineMath).Segment
			if got := string(seg.Value(source)); got != tt.tex[i] {
				t.Errorf("%q: TeX = %q, want %q", tt.input, got, tt.tex[i])
			}
		}
	}
}

func TestCalloutParser(t *testing.T) {
	root, _ := parse(t, ":::callout[Read me]{type=Danger}\ntext\n\n- item\n:::\n")
	nodes := findKind(root, KindCallout)
	if len(nodes) != 1 {
		t.Fatalf("%d callouts, want 1", len(nodes))
	}
	c := nodes[0].(*Callout)
	if c.Title != "Read me" || c.Variant != "danger" {
		t.Errorf("callout = {%q, %q}, want {%q, %q}", c.Title, c.Variant, "Read me", "danger")
	}
	if c.ChildCount() != 2 {
		t.Errorf("ChildCount() = %d, want 2", c.ChildCount())
	}
	if c.NextSibling() != nil {
		t.Errorf("unexpected sibling %v after callout", c.NextSibling().Kind())
	}
}

var (
	_ ast.Node = (*Callout)(nil)
	_ ast.Node = (*Badge)(nil)
)

func TestBadgeParser(t *testing.T) {
	tests := []struct {
		input   string
		label   string
		variant string
	}{
		{"see :badge[New]{type=Success} here", "New", "success"},
		{"see :badge[Plain] here", "Plain", DefaultBadgeType},
		{`see :badge[Odd]{type="no good"} here`, "Odd", DefaultBadgeType},
	}
	for _, tt := range tests {
		root, _ := parse(t, tt.input)
		nodes := findKind(root, KindBadge)
		if len(nodes) != 1 {
			t.Fatalf("%q: %d badges, want 1", tt.input, len(nodes))
		}
		b := nodes[0].(*Badge)
		if b.Label != tt.label || b.Variant != tt.variant {
			t.Errorf("%q: badge = {%q, %q}, want {%q, %q}", tt.input, b.Label, b.Variant, tt.label, tt.variant)
		}
	}
}

func TestAttrType(t *testing.T) {
	tests := []struct {
		attrs string
		want  string
	}{
		{"type=warning", "warning"},
		{`type="tip"`, "tip"},
		{"TYPE=Note", "note"},
		{"", "info"},
		{`type="bad class"`, "info"},
		{"other=1", "info"},
	}
	for _, tt := range tests {
		if got := attrType(tt.attrs, DefaultCalloutType); got != tt.want {
			t.Errorf("attrType(%q) = %q, want %q", tt.attrs, got, tt.want)
		}
	}
}
