package markdown

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// HTMLOption configures an HTMLRenderer.
type HTMLOption func(*HTMLRenderer)

// WithSanitize toggles the bluemonday pass over rendered HTML.
func WithSanitize(on bool) HTMLOption {
	return func(r *HTMLRenderer) { r.sanitize = on }
}

// WithCodeStyle sets the chroma style and switches code blocks to inline
// styles instead of CSS classes.
func WithCodeStyle(style string) HTMLOption {
	return func(r *HTMLRenderer) {
		r.ext.CodeStyle = style
		r.ext.CodeClasses = false
	}
}

// HTMLRenderer renders GitHub-flavoured markdown with the mdstream
// extensions to sanitized HTML.
type HTMLRenderer struct {
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	ext      Extension
	sanitize bool
}

// NewHTMLRenderer creates an HTML renderer. Output is sanitized and code
// is highlighted with CSS classes unless options say otherwise.
func NewHTMLRenderer(opts ...HTMLOption) *HTMLRenderer {
	r := &HTMLRenderer{
		ext:      Extension{CodeClasses: true},
		sanitize: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM, &r.ext),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	r.policy = newPolicy()
	return r
}

// newPolicy allows user-generated content plus the class attribute that
// highlighting and the block extensions depend on.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	p.AllowStyles("color", "background-color", "font-weight", "font-style", "text-decoration").
		OnElements("span", "pre")
	return p
}

// Render converts markdown to HTML.
func (r *HTMLRenderer) Render(markdown string) (string, error) {
	if err := validate(markdown); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", &ParseError{Message: "convert", Err: err}
	}
	if !r.sanitize {
		return buf.String(), nil
	}
	return r.policy.Sanitize(buf.String()), nil
}
