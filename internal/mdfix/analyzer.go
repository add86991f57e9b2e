// Package mdfix detects and repairs structurally incomplete markdown so that a
// streaming prefix can be parsed on every tick without swallowing later text.
package mdfix

import (
	"strings"
)

// Construct names a markdown construct that can be left open mid-stream.
type Construct string

const (
	ConstructFence      Construct = "fence"
	ConstructMathBlock  Construct = "math_block"
	ConstructInlineMath Construct = "inline_math"
	ConstructInlineCode Construct = "inline_code"
	ConstructTableRow   Construct = "table_row"
	ConstructTable      Construct = "table"
	ConstructLink       Construct = "link"
	ConstructListItem   Construct = "list_item"
	ConstructQuote      Construct = "quote"
	ConstructCallout    Construct = "callout"
)

// Verdict reports which constructs are open in a text. Every check runs
// independently; a caller sees the union of all open constructs.
type Verdict struct {
	FenceOpen        bool
	MathBlockOpen    bool
	InlineMathOpen   bool
	InlineCodeOpen   bool
	TableRowOpen     bool
	TableOpen        bool
	LinkOpen         bool
	ListItemDangling bool
	QuoteDangling    bool
	CalloutOpen      bool
}

// Analyze evaluates every structural predicate against text.
func Analyze(text string) Verdict {
	return Verdict{
		FenceOpen:        FenceOpen(text),
		MathBlockOpen:    MathBlockOpen(text),
		InlineMathOpen:   InlineMathOpen(text),
		InlineCodeOpen:   InlineCodeOpen(text),
		TableRowOpen:     TableRowOpen(text),
		TableOpen:        TableOpen(text),
		LinkOpen:         LinkOpen(text),
		ListItemDangling: ListItemDangling(text),
		QuoteDangling:    QuoteDangling(text),
		CalloutOpen:      CalloutOpen(text),
	}
}

// Open returns the open constructs in a fixed order.
func (v Verdict) Open() []Construct {
	var out []Construct
	add := func(open bool, c Construct) {
		if open {
			out = append(out, c)
		}
	}
	add(v.FenceOpen, ConstructFence)
	add(v.MathBlockOpen, ConstructMathBlock)
	add(v.InlineMathOpen, ConstructInlineMath)
	add(v.InlineCodeOpen, ConstructInlineCode)
	add(v.TableRowOpen, ConstructTableRow)
	add(v.TableOpen, ConstructTable)
	add(v.LinkOpen, ConstructLink)
	add(v.ListItemDangling, ConstructListItem)
	add(v.QuoteDangling, ConstructQuote)
	add(v.CalloutOpen, ConstructCallout)
	return out
}

// Complete reports whether no construct is open.
func (v Verdict) Complete() bool {
	return len(v.Open()) == 0
}

func (v Verdict) String() string {
	open := v.Open()
	if len(open) == 0 {
		return "complete"
	}
	names := make([]string, len(open))
	for i, c := range open {
		names[i] = string(c)
	}
	return "open: " + strings.Join(names, ", ")
}

// FenceOpen reports a fence opener with no matching closer.
func FenceOpen(text string) bool {
	return len(fenceDelims(text))%2 == 1
}

// MathBlockOpen reports an odd number of block-math delimiters outside fenced code.
func MathBlockOpen(text string) bool {
	tokens, _ := mathPositions(text)
	return len(tokens)%2 == 1
}

// lastLine returns the last non-empty line when it is outside both an open
// fence and an open math block. ok is false otherwise.
func lastLine(text string) (line string, ok bool) {
	lines := strings.Split(text, "\n")
	idx := lastNonEmptyLine(lines)
	if idx < 0 {
		return "", false
	}
	inFence, inMath := lineContext(lines, idx)
	if inFence || inMath {
		return "", false
	}
	return lines[idx], true
}

// InlineMathOpen reports an odd count of single unescaped dollar signs on
// the last non-empty line.
func InlineMathOpen(text string) bool {
	line, ok := lastLine(text)
	if !ok {
		return false
	}
	return countInlineDollars(line)%2 == 1
}

// InlineCodeOpen reports an odd number of backticks on the last non-empty line.
func InlineCodeOpen(text string) bool {
	line, ok := lastLine(text)
	if !ok {
		return false
	}
	return countInlineTicks(line)%2 == 1
}

// TableRowOpen reports a trailing table row that has not received its closing pipe.
func TableRowOpen(text string) bool {
	line, ok := lastLine(text)
	if !ok {
		return false
	}
	return unfinishedRow(line)
}

func unfinishedRow(line string) bool {
	if !strings.HasPrefix(strings.TrimLeft(line, " \t"), "|") {
		return false
	}
	if strings.Count(line, "|") < 2 {
		return false
	}
	return !strings.HasSuffix(strings.TrimRight(line, " \t"), "|")
}

// LinkOpen reports a link or image whose destination is still being written.
func LinkOpen(text string) bool {
	line, ok := lastLine(text)
	if !ok {
		return false
	}
	return openLinkRe.MatchString(line)
}

// ListItemDangling reports a trailing line that is only a list marker.
func ListItemDangling(text string) bool {
	line, ok := lastLine(text)
	if !ok {
		return false
	}
	return listMarkerRe.MatchString(line)
}

// QuoteDangling reports a trailing line that is only quote markers.
func QuoteDangling(text string) bool {
	line, ok := lastLine(text)
	if !ok {
		return false
	}
	return quoteOnlyRe.MatchString(line)
}

// CalloutOpen reports more :::callout openers than ::: closers outside fenced code.
func CalloutOpen(text string) bool {
	return calloutDepth(text) > 0
}

// calloutDepth returns openers minus closers, never below zero.
func calloutDepth(text string) int {
	opens, closes := 0, 0
	var fence fenceTracker
	for _, line := range strings.Split(text, "\n") {
		if !fence.inside() {
			switch {
			case calloutOpen.MatchString(line):
				opens++
			case calloutClose.MatchString(line):
				closes++
			}
		}
		fence.delims(line)
	}
	if opens > closes {
		return opens - closes
	}
	return 0
}
