package mdfix

import (
	"fmt"
	"strings"
)

// Mode selects how open constructs are handled.
type Mode int

const (
	// ModeFix closes every open construct so the prefix renders as if complete.
	ModeFix Mode = iota
	// ModeGuard neutralizes dangling openers so the prefix renders literally.
	ModeGuard
)

func (m Mode) String() string {
	switch m {
	case ModeGuard:
		return "guard"
	default:
		return "fix"
	}
}

// ParseMode parses "fix" or "guard".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fix":
		return ModeFix, nil
	case "guard":
		return ModeGuard, nil
	default:
		return ModeFix, fmt.Errorf("unknown autofix mode %q (want fix or guard)", s)
	}
}

// Fixer applies a fixed mode. The zero value fixes.
type Fixer struct {
	Mode Mode
}

// Fix is Apply with the fixer's mode.
func (f Fixer) Fix(text string) string {
	return Apply(text, f.Mode)
}

// Apply repairs text according to mode. Fence handling always runs first
// because an open fence changes how everything after it is read.
// Apply is idempotent and leaves text with no open constructs untouched.
func Apply(text string, mode Mode) string {
	if mode == ModeGuard {
		text = guardFence(text)
		text = guardMathBlock(text)
		return protectTable(text)
	}

	text = closeFence(text)
	text = closeMathBlock(text)
	text = closeInlineCode(text)
	text = closeInlineMath(text)
	text = closeLink(text)
	text = closeTableRow(text)
	text = protectTable(text)
	return closeCallouts(text)
}

func appendLine(text, token string) string {
	if strings.HasSuffix(text, "\n") {
		return text + token
	}
	return text + "\n" + token
}

// closeFence appends a closer as long as the unclosed opener's run.
func closeFence(text string) string {
	d := fenceDelims(text)
	if len(d)%2 == 0 {
		return text
	}
	open := d[len(d)-1]
	return appendLine(text, text[open[0]:open[1]])
}

func closeMathBlock(text string) string {
	if !MathBlockOpen(text) {
		return text
	}
	return appendLine(text, mathToken)
}

// editLastLine rewrites the last non-empty line with fn.
func editLastLine(text string, fn func(string) string) string {
	lines := strings.Split(text, "\n")
	idx := lastNonEmptyLine(lines)
	if idx < 0 {
		return text
	}
	lines[idx] = fn(lines[idx])
	return strings.Join(lines, "\n")
}

func closeInlineCode(text string) string {
	if !InlineCodeOpen(text) {
		return text
	}
	return editLastLine(text, func(line string) string {
		// a third adjacent backtick would open a fence
		if strings.HasSuffix(line, "``") {
			return line + " `"
		}
		return line + "`"
	})
}

func closeInlineMath(text string) string {
	if !InlineMathOpen(text) {
		return text
	}
	return editLastLine(text, func(line string) string {
		// keep the closer from doubling into $$ or being escaped
		if strings.HasSuffix(line, "$") || strings.HasSuffix(line, `\`) {
			return line + " $"
		}
		return line + "$"
	})
}

func closeLink(text string) string {
	if !LinkOpen(text) {
		return text
	}
	return editLastLine(text, func(line string) string {
		return line + ")"
	})
}

func closeTableRow(text string) string {
	if !TableRowOpen(text) {
		return text
	}
	return editLastLine(text, func(line string) string {
		return strings.TrimRight(line, " \t") + " |"
	})
}

func closeCallouts(text string) string {
	depth := calloutDepth(text)
	for i := 0; i < depth; i++ {
		text = appendLine(text, ":::")
	}
	return text
}

// guardFence neutralizes an unclosed fence opener, and every backtick run
// after it, and restores them once a real closer balances it.
func guardFence(text string) string {
	restored := guardedRunRe.ReplaceAllStringFunc(text, func(run string) string {
		return strings.ReplaceAll(run, zwsp, "")
	})
	d := fenceDelims(restored)
	if len(d)%2 == 0 {
		return restored
	}
	open := d[len(d)-1][0]
	return restored[:open] + fenceRunRe.ReplaceAllStringFunc(restored[open:], func(run string) string {
		return neutralizeRun(len(run))
	})
}

// neutralizeRun returns n backticks with a zero-width space after every
// second one, so no three are adjacent. neutralizeRun(3) is fenceMarker.
func neutralizeRun(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteByte('`')
		if i%2 == 0 && i < n {
			b.WriteString(zwsp)
		}
	}
	return b.String()
}

// guardMathBlock does the same for block-math delimiters outside code.
func guardMathBlock(text string) string {
	return guardToken(text, mathToken, mathMarker, func(s string) []int {
		tokens, _ := mathPositions(s)
		return tokens
	})
}

func guardToken(text, token, marker string, positions func(string) []int) string {
	restored := strings.ReplaceAll(text, marker, token)
	pos := positions(restored)
	if len(pos)%2 == 0 {
		return restored
	}
	return replaceAt(restored, pos[len(pos)-1], token, marker)
}
