package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/markdown"
	"github.com/samsaffron/mdstream/internal/mdfix"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultWidth = 80

var renderFlags CommonFlags

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a markdown document once",
	Long: `Render a markdown document, repairing unfinished constructs first.
Reads stdin when no file is given.

Examples:
  mdstream render README.md
  mdstream render --html --mode guard partial.md
  echo '**bold' | mdstream render`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	AddCommonFlags(renderCmd, &renderFlags)
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := renderFlags.loadConfig()
	if err != nil {
		return err
	}
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	r, err := newRenderer(cfg, outputWidth(cfg))
	if err != nil {
		return err
	}
	out, err := r.Render(mdfix.Apply(text, cfg.FixMode()))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), trimFinal(out))
	return nil
}

// readInput returns the contents of the named file, or of stdin when no
// file (or "-") is given.
func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

// newRenderer builds the renderer selected by cfg.
func newRenderer(cfg *config.Config, width int) (markdown.Renderer, error) {
	if cfg.Renderer == config.RendererHTML {
		opts := []markdown.HTMLOption{markdown.WithSanitize(cfg.Markdown.Sanitize)}
		if cfg.Markdown.CodeStyle != "" {
			opts = append(opts, markdown.WithCodeStyle(cfg.Markdown.CodeStyle))
		}
		return markdown.NewHTMLRenderer(opts...), nil
	}
	r, err := markdown.NewTermRenderer(cfg.Markdown.TermStyle, width)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// outputWidth is the configured width, else the terminal width, else 80.
func outputWidth(cfg *config.Config) int {
	if cfg.Markdown.Width > 0 {
		return cfg.Markdown.Width
	}
	if w := terminalWidth(); w > 0 {
		return w
	}
	return defaultWidth
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// trimFinal drops the trailing newline a renderer may leave so output ends
// with exactly one.
func trimFinal(s string) string {
	return strings.TrimRight(s, "\n")
}
