package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/feed"
	"github.com/samsaffron/mdstream/internal/markdown"
	"github.com/samsaffron/mdstream/internal/mdfix"
)

func fastConfig(renderer string) *config.Config {
	cfg := config.Defaults()
	cfg.Renderer = renderer
	cfg.Smooth.BaseSpeed = 1e6
	cfg.Smooth.MaxVelocity = 1e6
	cfg.Pipeline.Async = false
	return cfg
}

func TestRunHeadless(t *testing.T) {
	ch := make(chan feed.Chunk, 3)
	ch <- feed.Chunk{Index: 0, Text: "hello "}
	ch <- feed.Chunk{Index: 1, Text: "`world", Last: true}
	close(ch)

	echo := markdown.RendererFunc(func(s string) (string, error) { return s, nil })
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := runHeadless(ctx, &out, echo, fastConfig(config.RendererHTML), 80, ch); err != nil {
		t.Fatalf("runHeadless() error = %v", err)
	}
	// the fixer closes the dangling code span
	if got, want := out.String(), "hello `world`\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRunHeadless_ClosedWithoutLast(t *testing.T) {
	ch := make(chan feed.Chunk, 1)
	ch <- feed.Chunk{Text: "partial"}
	close(ch)

	echo := markdown.RendererFunc(func(s string) (string, error) { return s, nil })
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := runHeadless(ctx, &out, echo, fastConfig(config.RendererTerm), 40, ch); err != nil {
		t.Fatalf("runHeadless() error = %v", err)
	}
	if got := out.String(); got != "partial\n" {
		t.Errorf("output = %q, want %q", got, "partial\n")
	}
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("# from file"), 0644); err != nil {
		t.Fatal(err)
	}
	stdin := strings.NewReader("# from stdin")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"file", []string{path}, "# from file"},
		{"dash", []string{"-"}, "# from stdin"},
	}
	for _, tt := range tests {
		got, err := readInput(stdin, tt.args)
		if err != nil {
			t.Fatalf("%s: readInput() error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: readInput() = %q, want %q", tt.name, got, tt.want)
		}
	}

	if _, err := readInput(stdin, []string{filepath.Join(t.TempDir(), "missing.md")}); err == nil {
		t.Error("readInput(missing) error = nil, want error")
	}
}

func TestNewRenderer(t *testing.T) {
	cfg := config.Defaults()
	cfg.Renderer = config.RendererHTML
	r, err := newRenderer(cfg, 80)
	if err != nil {
		t.Fatalf("newRenderer(html) error = %v", err)
	}
	if _, ok := r.(*markdown.HTMLRenderer); !ok {
		t.Errorf("newRenderer(html) = %T, want *markdown.HTMLRenderer", r)
	}

	cfg.Renderer = config.RendererTerm
	cfg.Markdown.TermStyle = "notty"
	r, err = newRenderer(cfg, 80)
	if err != nil {
		t.Fatalf("newRenderer(term) error = %v", err)
	}
	if tr, ok := r.(*markdown.TermRenderer); !ok || tr.Width() != 80 {
		t.Errorf("newRenderer(term) = %T, want *markdown.TermRenderer of width 80", r)
	}

	cfg.Markdown.TermStyle = "no-such-style"
	if _, err := newRenderer(cfg, 80); err == nil {
		t.Error("newRenderer(bad style) error = nil, want error")
	}
}

func TestCommonFlags_LoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("markdown:\n  width: 50\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mode, html, style, width := "guard", true, "dark", 0
	flags := CommonFlags{Config: &path, Mode: &mode, HTML: &html, TermStyle: &style, Width: &width}

	cfg, err := flags.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Mode != "guard" || cfg.Renderer != config.RendererHTML || cfg.Markdown.TermStyle != "dark" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Markdown.Width != 50 {
		t.Errorf("Width = %d, want 50 from file", cfg.Markdown.Width)
	}
	if got := outputWidth(cfg); got != 50 {
		t.Errorf("outputWidth() = %d, want 50", got)
	}

	mode = "sideways"
	if _, err := flags.loadConfig(); err == nil {
		t.Error("loadConfig(bad mode) error = nil, want error")
	}
}

func TestWriteSteps(t *testing.T) {
	cfg := config.Defaults()
	cfg.Stream.MinChunk = 4
	cfg.Stream.MaxChunk = 4

	var out bytes.Buffer
	writeSteps(&out, "```go\nx\n```\n", cfg)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("writeSteps() printed %d lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "fence") {
		t.Errorf("first step = %q, want open fence", lines[0])
	}
	if !strings.HasSuffix(lines[2], "complete") {
		t.Errorf("last step = %q, want complete", lines[2])
	}
}

func TestRepairDiff(t *testing.T) {
	if got := repairDiff("a.md", "# done\n", mdfix.ModeFix); got != nil {
		t.Errorf("repairDiff(complete) = %q, want nil", got)
	}
	got := string(repairDiff("a.md", "intro\n```go\nx := 1", mdfix.ModeFix))
	if !strings.Contains(got, "+```") {
		t.Errorf("repairDiff() = %q, want an added fence line", got)
	}
	if !strings.Contains(got, "a.md (fix)") {
		t.Errorf("repairDiff() = %q, want the mode in the header", got)
	}
}
