package mdfix

import (
	"strings"
	"testing"
)

func TestApply_Fix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"open fence", "```js\nconsole.log(1)", "```js\nconsole.log(1)\n```"},
		{"open fence trailing newline", "```js\nx\n", "```js\nx\n```"},
		{"long fence closed with same run", "````md\nx", "````md\nx\n````"},
		{"short run inside long fence", "````md\n```go\nx\n```\n", "````md\n```go\nx\n```\n````"},
		{"longer closer", "```\nx\n````\n", "```\nx\n````\n"},
		{"open math block", "$$\nx^2", "$$\nx^2\n$$"},
		{"inline code", "use `fmt", "use `fmt`"},
		{"inline code after double tick", "a `b ``", "a `b `` `"},
		{"inline math", "$E=mc^2", "$E=mc^2$"},
		{"inline math empty opener", "price $", "price $ $"},
		{"link", "[docs](https://example.com", "[docs](https://example.com)"},
		{"image", "![img](a.png", "![img](a.png)"},
		{"table row", "| a | b", "| a | b |"},
		{"link inside table row", "| b | [a](x", "| b | [a](x) |"},
		{"table first body row", "| a | b |\n|---|---|\n| 1 | 2", "| a | b |\n|---|---|\n| 1 | 2 |"},
		{"table header only", "| a | b |\n|---|---|", "| a | b |\n|" + zwsp + "---|---|"},
		{"callout", ":::callout[Hi]{type=info}\nbody", ":::callout[Hi]{type=info}\nbody\n:::"},
		{"nested callouts", ":::callout\n:::callout\nx", ":::callout\n:::callout\nx\n:::\n:::"},
		{"balanced", "# Title\n\nSome *text*.\n", "# Title\n\nSome *text*.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.in, ModeFix); got != tt.want {
				t.Errorf("Apply(%q, fix) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApply_Guard(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"open fence", "```js\nconsole.log(1)", fenceMarker + "js\nconsole.log(1)"},
		{"closed fence", "```js\nx\n```", "```js\nx\n```"},
		{"marker restored on close", fenceMarker + "js\nx\n```", "```js\nx\n```"},
		{"last fence neutralized", "```\na\n```\n```py\nb", "```\na\n```\n" + fenceMarker + "py\nb"},
		{"long fence", "````md\n```go\nx", "``" + zwsp + "``md\n" + fenceMarker + "go\nx"},
		{"long fence restored on close", "``" + zwsp + "``md\n" + fenceMarker + "go\nx\n````", "````md\n```go\nx\n````"},
		{"open math block", "$$\nx", mathMarker + "\nx"},
		{"math marker restored", mathMarker + "\nx\n$$", "$$\nx\n$$"},
		{"math inside open fence", "```\n$$\n", fenceMarker + "\n" + mathMarker + "\n"},
		{"inline math untouched", "$x", "$x"},
		{"table header protected", "| a | b |\n|---|---|", "| a | b |\n|" + zwsp + "---|---|"},
		{"table protection removed", "| a | b |\n|" + zwsp + "---|---|\n| 1 | 2 |", "| a | b |\n|---|---|\n| 1 | 2 |"},
		{"partial body row keeps protection", "| a | b |\n|---|---|\n| 1", "| a | b |\n|" + zwsp + "---|---|\n| 1"},
		{"header without separator", "| a | b |", "| a | b |"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.in, ModeGuard); got != tt.want {
				t.Errorf("Apply(%q, guard) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApply_GuardDoesNotSwallowLaterText(t *testing.T) {
	first := Apply("```js\nconsole.log(1)", ModeGuard)
	later := Apply("```js\nconsole.log(1)\nmore text", ModeGuard)

	if FenceOpen(first) || FenceOpen(later) {
		t.Errorf("guarded text still has an open fence: %q / %q", first, later)
	}
	if !strings.HasSuffix(later, "\nmore text") {
		t.Errorf("Apply() = %q, want appended text preserved", later)
	}
}

var idempotenceCorpus = []string{
	"",
	"plain",
	"```js\nconsole.log(1)",
	"```\na\n```\n```py\nb",
	"$$\nx",
	"$$ a $$ b $$",
	"$E=mc^2",
	"price $",
	`escaped \`,
	"use `fmt",
	"a `b ``",
	"[docs](https://x",
	"| a | b",
	"| b | [a](x",
	"| a | b |\n|---|--",
	"| a | b |\n|---|---|",
	"| a | b |\n|---|---|\n| 1 | 2",
	"| a | b |\n|---|---|\n| 1 | 2 |\n| 3",
	":::callout[x]\n| a | b",
	"- item\n- ",
	"> quote\n>",
	"```\n$$\n",
	"text $x `y [z](w",
}

func TestApply_Idempotent(t *testing.T) {
	for _, mode := range []Mode{ModeFix, ModeGuard} {
		for _, in := range idempotenceCorpus {
			once := Apply(in, mode)
			twice := Apply(once, mode)
			if once != twice {
				t.Errorf("Apply(Apply(%q, %v)) = %q, want %q", in, mode, twice, once)
			}
		}
	}
}

func TestApply_FixClosesEverything(t *testing.T) {
	for _, in := range idempotenceCorpus {
		v := Analyze(Apply(in, ModeFix))
		if v.FenceOpen || v.MathBlockOpen || v.InlineCodeOpen || v.LinkOpen || v.TableRowOpen || v.CalloutOpen {
			t.Errorf("Apply(%q, fix) left %v", in, v)
		}
	}
}

func TestApply_BalancedUnchanged(t *testing.T) {
	balanced := []string{
		"# Heading\n\nParagraph with `code` and $x$.\n",
		"```go\nfunc main() {}\n```\n",
		"$$\na^2 + b^2\n$$\n",
		"| a | b |\n|---|---|\n| 1 | 2 |\n",
		":::callout[Tip]{type=info}\nBody\n:::\n",
		"See [link](https://example.com) and ![img](a.png).",
	}
	for _, text := range balanced {
		if !Analyze(text).Complete() {
			t.Errorf("Analyze(%q) = %v, want complete", text, Analyze(text))
		}
		for _, mode := range []Mode{ModeFix, ModeGuard} {
			if got := Apply(text, mode); got != text {
				t.Errorf("Apply(%q, %v) = %q, want unchanged", text, mode, got)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"fix", ModeFix, false},
		{"", ModeFix, false},
		{"Guard", ModeGuard, false},
		{"strict", ModeFix, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ModeGuard.String() != "guard" || ModeFix.String() != "fix" {
		t.Errorf("Mode.String() = %q/%q", ModeFix, ModeGuard)
	}
}
