package mdfix

import (
	"regexp"
	"strings"
)

const (
	mathToken = "$$"

	zwsp = "\u200b"

	// Neutralized forms inserted by guard mode. The zero-width space keeps
	// the parser from seeing an opener while rendering identically.
	fenceMarker = "``" + zwsp + "`"
	mathMarker  = "$" + zwsp + "$"
)

var (
	codeSpanRe   = regexp.MustCompile("`+[^`]*`+")
	fenceRunRe   = regexp.MustCompile("```+")
	guardedRunRe = regexp.MustCompile("(?:``" + zwsp + ")+`+")
	openLinkRe   = regexp.MustCompile(`!?\[[^\]]*\]\([^)\n]*$`)
	listMarkerRe = regexp.MustCompile(`^\s*(?:[-*+]|\d{1,9}[.)])\s*$`)
	quoteOnlyRe  = regexp.MustCompile(`^\s*(?:>\s*)+$`)
	calloutOpen  = regexp.MustCompile(`^\s*:::callout\b`)
	calloutClose = regexp.MustCompile(`^\s*:::\s*$`)
)

// lastNonEmptyLine returns the index of the last line with non-space content, or -1.
func lastNonEmptyLine(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

// fenceTracker follows fenced code across successive pieces of text. A run
// of three or more backticks opens a fence, and only a run at least as long
// as the opener closes it; shorter runs inside are content.
type fenceTracker struct {
	open int // opener length, 0 outside a fence
}

func (f *fenceTracker) inside() bool { return f.open > 0 }

// delims returns the [start, end) ranges of the runs in s that open or
// close a fence, advancing the tracker past s.
func (f *fenceTracker) delims(s string) [][2]int {
	var out [][2]int
	for _, r := range fenceRunRe.FindAllStringIndex(s, -1) {
		n := r[1] - r[0]
		switch {
		case f.open == 0:
			f.open = n
		case n >= f.open:
			f.open = 0
		default:
			continue
		}
		out = append(out, [2]int{r[0], r[1]})
	}
	return out
}

// fenceDelims returns the opener and closer runs of text in order. An odd
// count means the last one is an unclosed opener.
func fenceDelims(text string) [][2]int {
	var f fenceTracker
	return f.delims(text)
}

func tokenPositions(text, token string, from, to int) []int {
	var out []int
	for i := from; i+len(token) <= to; {
		j := strings.Index(text[i:to], token)
		if j < 0 {
			break
		}
		out = append(out, i+j)
		i += j + len(token)
	}
	return out
}

// outsideFences returns [start, end) byte ranges of text that are not inside
// a fenced code region. An unterminated fence extends to the end.
func outsideFences(text string) [][2]int {
	var f fenceTracker
	return outsideFencesFrom(text, &f)
}

// mathPositions returns offsets of real and neutralized block-math tokens
// that lie outside fenced code.
func mathPositions(text string) (tokens, marked []int) {
	for _, r := range outsideFences(text) {
		tokens = append(tokens, tokenPositions(text, mathToken, r[0], r[1])...)
		marked = append(marked, tokenPositions(text, mathMarker, r[0], r[1])...)
	}
	return tokens, marked
}

// lineContext reports whether line idx sits inside an open fence or an
// open block-math region, counting tokens up to and including that line.
func lineContext(lines []string, idx int) (inFence, inMath bool) {
	var fence fenceTracker
	maths := 0
	for i := 0; i <= idx && i < len(lines); i++ {
		// math inside a fence does not count
		for _, r := range outsideFencesFrom(lines[i], &fence) {
			maths += strings.Count(lines[i][r[0]:r[1]], mathToken)
		}
	}
	return fence.inside(), maths%2 == 1
}

// outsideFencesFrom is outsideFences for a piece of text that may start
// inside a fence. It advances f past line.
func outsideFencesFrom(line string, f *fenceTracker) [][2]int {
	var ranges [][2]int
	start := 0
	inside := f.inside()
	for _, d := range f.delims(line) {
		if !inside {
			ranges = append(ranges, [2]int{start, d[0]})
		} else {
			start = d[1]
		}
		inside = !inside
	}
	if !inside {
		ranges = append(ranges, [2]int{start, len(line)})
	}
	return ranges
}

// countInlineDollars counts single, unescaped dollar signs in line.
// Doubled dollars and code spans are skipped.
func countInlineDollars(line string) int {
	line = codeSpanRe.ReplaceAllString(line, "")
	n := 0
	for i := 0; i < len(line); i++ {
		if line[i] != '$' {
			continue
		}
		if i > 0 && line[i-1] == '\\' {
			continue
		}
		if i+1 < len(line) && line[i+1] == '$' {
			i++
			continue
		}
		n++
	}
	return n
}

// countInlineTicks counts backticks outside fence runs.
func countInlineTicks(line string) int {
	return strings.Count(fenceRunRe.ReplaceAllString(line, ""), "`")
}

// replaceAt replaces the token at byte offset pos with repl.
func replaceAt(text string, pos int, token, repl string) string {
	return text[:pos] + repl + text[pos+len(token):]
}
