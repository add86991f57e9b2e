package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var debug bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Emit debug logs on stderr")
}

var rootCmd = &cobra.Command{
	Use:   "mdstream",
	Short: "Render streaming markdown smoothly",
	Long: `mdstream renders a growing, possibly incomplete markdown document,
repairing unfinished constructs and pacing the reveal of new text.

Examples:
  mdstream render README.md               # render to the terminal
  mdstream render --html notes.md         # render sanitized HTML
  mdstream stream README.md               # replay a file as a live stream
  cat answer.md | mdstream stream --mode guard
  mdstream analyze draft.md               # report unfinished constructs

  mdstream config                         # view configuration`,
	Version:           Version,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default logger. Without --debug only warnings
// and errors reach stderr.
func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}
