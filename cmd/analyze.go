package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/feed"
	"github.com/samsaffron/mdstream/internal/mdfix"
	diff "github.com/shogoki/gotextdiff"
	"github.com/spf13/cobra"
)

var (
	analyzeConfig string
	analyzeMode   string
	analyzeFix    bool
	analyzeDiff   bool
	analyzeSteps  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Report unfinished markdown constructs",
	Long: `Report which constructs (fences, math, tables, links, callouts, ...) are
left open at the end of a document.

Examples:
  mdstream analyze draft.md
  mdstream analyze --fix --mode guard draft.md    # print the repaired text
  mdstream analyze --diff draft.md                # show what the repair changes
  mdstream analyze --steps README.md              # verdict after every chunk`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	AddConfigFlag(analyzeCmd, &analyzeConfig)
	AddModeFlag(analyzeCmd, &analyzeMode)
	analyzeCmd.Flags().BoolVar(&analyzeFix, "fix", false, "Print the repaired document instead of the verdict")
	analyzeCmd.Flags().BoolVar(&analyzeDiff, "diff", false, "Print a unified diff of the repair")
	analyzeCmd.Flags().BoolVar(&analyzeSteps, "steps", false, "Print the verdict after every stream chunk")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	flags := CommonFlags{Config: &analyzeConfig, Mode: &analyzeMode}
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case analyzeFix:
		fmt.Fprint(out, mdfix.Apply(text, cfg.FixMode()))
	case analyzeDiff:
		name := "stdin"
		if len(args) > 0 && args[0] != "-" {
			name = args[0]
		}
		out.Write(repairDiff(name, text, cfg.FixMode()))
	case analyzeSteps:
		writeSteps(out, text, cfg)
	default:
		fmt.Fprintln(out, mdfix.Analyze(text))
	}
	return nil
}

// repairDiff returns a unified diff from text to its repaired form, or nil
// when the repair changes nothing.
func repairDiff(name, text string, mode mdfix.Mode) []byte {
	fixed := mdfix.Apply(text, mode)
	if fixed == text {
		return nil
	}
	return diff.Diff(name, []byte(text), name+" ("+mode.String()+")", []byte(fixed))
}

// writeSteps prints one line per chunk: the prefix length and the verdict
// for the prefix ending at that chunk.
func writeSteps(w io.Writer, text string, cfg *config.Config) {
	var prefix strings.Builder
	chunks := feed.Split(text, cfg.Stream.MinChunk, cfg.Stream.MaxChunk, cfg.Stream.Seed)
	for i, c := range chunks {
		prefix.WriteString(c)
		fmt.Fprintf(w, "%4d %6d  %s\n", i, prefix.Len(), mdfix.Analyze(prefix.String()))
	}
}
