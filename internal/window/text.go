package window

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// TextSegmenter splits terminal output (possibly containing ANSI escapes)
// into paragraph-aligned blocks. Heights are in terminal rows.
type TextSegmenter struct {
	cfg   Config
	width int
}

// NewTextSegmenter creates a segmenter for a terminal of the given width.
// A non-positive width disables soft-wrap accounting.
func NewTextSegmenter(cfg Config, width int) *TextSegmenter {
	return &TextSegmenter{cfg: cfg.normalize(), width: width}
}

// SetWidth changes the wrap width used by Estimate.
func (s *TextSegmenter) SetWidth(width int) {
	s.width = width
}

// Split cuts output after blank lines, coalescing paragraphs until they
// reach MinBlockSize bytes. Paragraphs over LargeElementThreshold stand alone.
func (s *TextSegmenter) Split(output string) []string {
	if output == "" {
		return nil
	}
	var (
		blocks []string
		acc    strings.Builder
		para   strings.Builder
	)
	flush := func() {
		if acc.Len() > 0 {
			blocks = append(blocks, acc.String())
			acc.Reset()
		}
	}
	endParagraph := func() {
		if para.Len() == 0 {
			return
		}
		p := para.String()
		para.Reset()
		if len(p) > s.cfg.LargeElementThreshold {
			flush()
			blocks = append(blocks, p)
			return
		}
		acc.WriteString(p)
		if acc.Len() >= s.cfg.MinBlockSize {
			flush()
		}
	}

	for _, line := range strings.SplitAfter(output, "\n") {
		if line == "" {
			continue
		}
		para.WriteString(line)
		if strings.TrimSpace(ansi.Strip(line)) == "" {
			endParagraph()
		}
	}
	endParagraph()
	flush()
	return blocks
}

// Estimate returns the number of rows block occupies, counting soft wraps.
func (s *TextSegmenter) Estimate(block string) float64 {
	return float64(s.Rows(block))
}

// Rows counts display rows. A trailing newline does not start a new row.
func (s *TextSegmenter) Rows(block string) int {
	block = strings.TrimSuffix(block, "\n")
	rows := 0
	for _, line := range strings.Split(block, "\n") {
		w := ansi.StringWidth(line)
		if s.width <= 0 || w <= s.width {
			rows++
			continue
		}
		rows += (w + s.width - 1) / s.width
	}
	return rows
}
