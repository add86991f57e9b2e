package markdown

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestTermRenderer_Render(t *testing.T) {
	r, err := NewTermRenderer("notty", 40)
	if err != nil {
		t.Fatalf("NewTermRenderer() error = %v", err)
	}
	got, err := r.Render("# Title\n\nhello **world**\n")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	plain := ansi.Strip(got)
	for _, want := range []string{"Title", "hello", "world"} {
		if !strings.Contains(plain, want) {
			t.Errorf("Render() = %q, want substring %q", plain, want)
		}
	}
	if strings.HasPrefix(got, "\n") || strings.HasSuffix(got, "\n") {
		t.Errorf("Render() = %q, want surrounding newlines trimmed", got)
	}
}

func TestTermRenderer_Wraps(t *testing.T) {
	r, err := NewTermRenderer("notty", 20)
	if err != nil {
		t.Fatalf("NewTermRenderer() error = %v", err)
	}
	got, err := r.Render(strings.Repeat("word ", 20))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, line := range strings.Split(got, "\n") {
		if w := ansi.StringWidth(line); w > 20 {
			t.Errorf("line %q has width %d, want <= 20", line, w)
		}
	}

	if err := r.SetWidth(60); err != nil {
		t.Fatalf("SetWidth() error = %v", err)
	}
	if r.Width() != 60 {
		t.Errorf("Width() = %d, want 60", r.Width())
	}
}

func TestTermRenderer_UnknownStyle(t *testing.T) {
	if _, err := NewTermRenderer("no-such-style", 80); err == nil {
		t.Error("NewTermRenderer(unknown) error = nil, want error")
	}
}

func TestPlainExtensions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "callout",
			input: ":::callout[Note]{type=tip}\nbody\n:::\nafter\n",
			want:  "> **Note**\n> body\nafter\n",
		},
		{
			name:  "untitled callout uses type",
			input: ":::callout{type=warning}\nx\n:::\n",
			want:  "> **warning**\n> x\n",
		},
		{
			name:  "nested callout",
			input: ":::callout[A]\n:::callout[B]\nin\n:::\n:::\n",
			want:  "> **A**\n> > **B**\n> > in\n",
		},
		{
			name:  "badge",
			input: "state :badge[ok]{type=success}\n",
			want:  "state `[ok]`\n",
		},
		{
			name:  "spoiler",
			input: "it was !!!him!!!\n",
			want:  "it was ░░░\n",
		},
		{
			name:  "fenced code untouched",
			input: "```\n:::callout[X]\n:badge[y]\n```\n",
			want:  "```\n:::callout[X]\n:badge[y]\n```\n",
		},
		{
			name:  "stray closer kept",
			input: ":::\n",
			want:  ":::\n",
		},
	}
	for _, tt := range tests {
		if got := plainExtensions(tt.input); got != tt.want {
			t.Errorf("%s: plainExtensions() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
