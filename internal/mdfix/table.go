package mdfix

import (
	"regexp"
	"strings"
)

var separatorRe = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(?:\|\s*:?-+:?\s*)*\|?\s*$`)

// trailingTable locates a header/separator pair in the trailing run of
// pipe-bearing lines. sep is -1 when there is none. established is true once
// a complete body row follows the separator.
func trailingTable(lines []string) (sep int, established bool) {
	last := lastNonEmptyLine(lines)
	if last < 0 || !strings.Contains(lines[last], "|") {
		return -1, false
	}
	if inFence, inMath := lineContext(lines, last); inFence || inMath {
		return -1, false
	}

	start := last
	for start > 0 && strings.Contains(lines[start-1], "|") {
		start--
	}

	sep = -1
	for i := start + 1; i <= last; i++ {
		if isSeparator(lines[i]) {
			sep = i
			break
		}
	}
	if sep < 0 {
		return -1, false
	}
	for i := sep + 1; i <= last; i++ {
		if completeRow(lines[i]) {
			return sep, true
		}
	}
	return sep, false
}

func isSeparator(line string) bool {
	line = strings.ReplaceAll(line, zwsp, "")
	return strings.Contains(line, "|") && separatorRe.MatchString(line)
}

func completeRow(line string) bool {
	return strings.Count(line, "|") >= 2 && strings.HasSuffix(strings.TrimRight(line, " \t"), "|")
}

// TableOpen reports a trailing table whose header and separator have
// arrived but no complete body row yet.
func TableOpen(text string) bool {
	sep, established := trailingTable(strings.Split(text, "\n"))
	return sep >= 0 && !established
}

// protectTable keeps a streaming table header from rendering as an empty
// table by breaking its separator row with a zero-width space. The marker is
// removed once a complete body row arrives.
func protectTable(text string) string {
	lines := strings.Split(text, "\n")
	sep, established := trailingTable(lines)
	if sep < 0 {
		return text
	}

	line := strings.ReplaceAll(lines[sep], zwsp, "")
	if !established {
		if k := strings.IndexByte(line, '-'); k >= 0 {
			line = line[:k] + zwsp + line[k:]
		}
	}
	if line == lines[sep] {
		return text
	}
	lines[sep] = line
	return strings.Join(lines, "\n")
}
