package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// DefaultTermStyle picks dark or light from the terminal background.
const DefaultTermStyle = styles.AutoStyle

// TermRenderer renders markdown to ANSI text with glamour. Callouts,
// badges and spoilers are rewritten into plain markdown first since
// glamour has no notion of them.
type TermRenderer struct {
	mu    sync.Mutex
	style string
	width int
	tr    *glamour.TermRenderer
}

// NewTermRenderer creates a terminal renderer wrapping at width columns.
// style is a glamour standard style name or "auto".
func NewTermRenderer(style string, width int) (*TermRenderer, error) {
	if style == "" {
		style = DefaultTermStyle
	}
	r := &TermRenderer{style: style}
	if err := r.SetWidth(width); err != nil {
		return nil, err
	}
	return r, nil
}

// SetWidth rebuilds the underlying renderer for a new wrap width.
func (r *TermRenderer) SetWidth(width int) error {
	if width < 0 {
		width = 0
	}
	styleOpt, err := termStyle(r.style)
	if err != nil {
		return err
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("create terminal renderer: %w", err)
	}
	r.mu.Lock()
	r.tr = tr
	r.width = width
	r.mu.Unlock()
	return nil
}

// Width returns the current wrap width.
func (r *TermRenderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// termStyle resolves a style name. Named styles have their document margin
// removed so output lines up with the left edge of the viewport.
func termStyle(name string) (glamour.TermRendererOption, error) {
	if name == styles.AutoStyle {
		return glamour.WithStandardStyle(name), nil
	}
	base, ok := styles.DefaultStyles[name]
	if !ok {
		return nil, fmt.Errorf("unknown terminal style %q", name)
	}
	style := *base
	margin := uint(0)
	style.Document.Margin = &margin
	style.CodeBlock.Margin = &margin
	return glamour.WithStyles(style), nil
}

// Render converts markdown to ANSI text.
func (r *TermRenderer) Render(markdown string) (string, error) {
	if err := validate(markdown); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.tr.Render(plainExtensions(markdown))
	if err != nil {
		return "", &ParseError{Message: "render", Err: err}
	}
	return strings.Trim(out, "\n"), nil
}

var (
	termBadgeRe   = regexp.MustCompile(`:badge\[([^\]\n]+)\](?:\{[^}\n]*\})?`)
	termSpoilerRe = regexp.MustCompile(`!!!([^\n]+?)!!!`)
)

// plainExtensions rewrites extension syntax outside code fences: callouts
// become block quotes with a bold title, badges become bracketed code and
// spoilers are masked.
func plainExtensions(markdown string) string {
	lines := strings.SplitAfter(markdown, "\n")
	var (
		b       strings.Builder
		inFence bool
		depth   int
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			if m := calloutOpenRe.FindStringSubmatch(trimmed); m != nil {
				title := strings.TrimSpace(m[1])
				if title == "" {
					title = attrType(m[2], DefaultCalloutType)
				}
				b.WriteString(strings.Repeat("> ", depth) + "> **" + title + "**\n")
				depth++
				continue
			}
			if depth > 0 && calloutCloseRe.MatchString(trimmed) {
				depth--
				continue
			}
			line = termBadgeRe.ReplaceAllString(line, "`[$1]`")
			line = termSpoilerRe.ReplaceAllStringFunc(line, func(s string) string {
				return strings.Repeat("░", len([]rune(s))-6)
			})
		}
		b.WriteString(strings.Repeat("> ", depth) + line)
	}
	return b.String()
}
