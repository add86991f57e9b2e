package window

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
)

// Pixel heuristics for HTML block estimates.
const (
	lineHeight     = 24.0
	charsPerLine   = 80.0
	tableRowHeight = 35.0
	codeLineHeight = 20.0
	mathHeight     = 80.0
	imageHeight    = 400.0
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// HTMLSegmenter splits rendered HTML at top-level elements. Tables, code
// blocks, display math, callouts and oversized elements are always their
// own block; smaller neighbours are coalesced.
type HTMLSegmenter struct {
	cfg Config
}

// NewHTMLSegmenter creates an HTML segmenter.
func NewHTMLSegmenter(cfg Config) *HTMLSegmenter {
	return &HTMLSegmenter{cfg: cfg.normalize()}
}

type element struct {
	raw   string
	tag   string
	class string
	blank bool
}

// topLevel tokenizes doc and groups tokens into top-level elements.
// Text between elements is kept so the elements concatenate back to doc.
func topLevel(doc string) []element {
	var (
		out      []element
		cur      strings.Builder
		el       element
		depth    int
		consumed int
	)
	finish := func() {
		el.raw = cur.String()
		out = append(out, el)
		cur.Reset()
		el = element{}
	}
	open := func(z *html.Tokenizer) {
		name, hasAttr := z.TagName()
		el.tag = string(name)
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if string(key) == "class" {
				el.class = string(val)
			}
		}
	}

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()
		consumed += len(raw)
		switch tt {
		case html.StartTagToken:
			// TagName lower-cases the buffer in place, so copy raw first
			cur.Write(raw)
			if depth == 0 {
				open(z)
				if voidElements[el.tag] {
					finish()
				} else {
					depth++
				}
				continue
			}
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				depth++
			}
		case html.EndTagToken:
			cur.Write(raw)
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				finish()
			}
		case html.SelfClosingTagToken:
			cur.Write(raw)
			if depth == 0 {
				open(z)
				finish()
			}
		default:
			cur.Write(raw)
			if depth == 0 {
				el.blank = strings.TrimSpace(string(raw)) == ""
				finish()
			}
		}
	}
	// a tag cut off at EOF is dropped by the tokenizer
	if consumed < len(doc) {
		cur.WriteString(doc[consumed:])
	}
	// unclosed element at end of a streaming document
	if cur.Len() > 0 {
		finish()
	}
	return out
}

func (s *HTMLSegmenter) isLarge(el element) bool {
	switch el.tag {
	case "table", "pre":
		return true
	}
	if hasClass(el.class, "math-display") || hasClass(el.class, "md-callout") {
		return true
	}
	return len(el.raw) > s.cfg.LargeElementThreshold
}

func hasClass(classes, name string) bool {
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

// Split partitions doc into blocks.
func (s *HTMLSegmenter) Split(doc string) []string {
	if doc == "" {
		return nil
	}
	var (
		blocks []string
		acc    strings.Builder
	)
	flush := func() {
		if acc.Len() > 0 {
			blocks = append(blocks, acc.String())
			acc.Reset()
		}
	}

	for _, el := range topLevel(doc) {
		if el.blank {
			// whitespace between elements rides along with its neighbour
			if acc.Len() == 0 && len(blocks) > 0 {
				blocks[len(blocks)-1] += el.raw
			} else {
				acc.WriteString(el.raw)
			}
			continue
		}
		if s.isLarge(el) {
			flush()
			blocks = append(blocks, el.raw)
			continue
		}
		acc.WriteString(el.raw)
		if acc.Len() >= s.cfg.MinBlockSize {
			flush()
		}
	}
	flush()
	return blocks
}

// Estimate guesses the pixel height of an HTML block from its content type.
func (s *HTMLSegmenter) Estimate(block string) float64 {
	switch {
	case strings.Contains(block, "<table"):
		rows := strings.Count(block, "<tr")
		return math.Max(40, float64(rows)*tableRowHeight+40)
	case strings.Contains(block, "<pre"):
		lines := strings.Count(block, "\n") + 1
		return math.Max(60, float64(lines)*codeLineHeight+32)
	case strings.Contains(block, "math-display"):
		return mathHeight
	case strings.Contains(block, "md-callout"):
		items := strings.Count(block, "<li") + strings.Count(block, "<p")
		return math.Max(60, float64(items)*lineHeight+40)
	case strings.Contains(block, "<img"):
		imgs := strings.Count(block, "<img")
		return math.Max(200, float64(imgs)*imageHeight+textHeight(block))
	default:
		return math.Max(lineHeight, textHeight(block))
	}
}

// textHeight estimates wrapped text height from the block's display width.
func textHeight(block string) float64 {
	return math.Ceil(float64(textWidth(block))/charsPerLine) * lineHeight
}

// textWidth returns the display width of the text content of an HTML fragment.
func textWidth(fragment string) int {
	width := 0
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return width
		case html.TextToken:
			width += runewidth.StringWidth(string(z.Text()))
		}
	}
}
