package cmd

import (
	"fmt"

	"github.com/samsaffron/mdstream/internal/config"
	"github.com/spf13/cobra"
)

// CommonFlags holds pointers to flag variables shared across commands.
// Each command creates its own instance with its own variables.
type CommonFlags struct {
	Config    *string
	Mode      *string
	HTML      *bool
	TermStyle *string
	Width     *int
}

// AddConfigFlag adds the --config/-c flag
func AddConfigFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "config", "c", "", "Config file (default is the user config path)")
}

// AddModeFlag adds the --mode flag with completion
func AddModeFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "mode", "", "Repair mode for unfinished markdown: fix or guard")
	if err := cmd.RegisterFlagCompletionFunc("mode", modeFlagCompletion); err != nil {
		panic("failed to register mode completion: " + err.Error())
	}
}

// AddHTMLFlag adds the --html flag
func AddHTMLFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "html", false, "Render HTML instead of terminal output")
}

// AddStyleFlags adds --style and --width
func AddStyleFlags(cmd *cobra.Command, style *string, width *int) {
	cmd.Flags().StringVar(style, "style", "", "Terminal style (auto, dark, light, notty, dracula, ...)")
	cmd.Flags().IntVarP(width, "width", "w", 0, "Wrap width for terminal output (0 uses the terminal width)")
}

// AddCommonFlags registers every shared flag on cmd
func AddCommonFlags(cmd *cobra.Command, f *CommonFlags) {
	f.Config = new(string)
	f.Mode = new(string)
	f.HTML = new(bool)
	f.TermStyle = new(string)
	f.Width = new(int)
	AddConfigFlag(cmd, f.Config)
	AddModeFlag(cmd, f.Mode)
	AddHTMLFlag(cmd, f.HTML)
	AddStyleFlags(cmd, f.TermStyle, f.Width)
}

// loadConfig reads the config file named by --config, or the default one,
// and applies flag overrides.
func (f *CommonFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.Config != nil && *f.Config != "" {
		cfg, err = config.LoadFile(*f.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	renderer := ""
	if f.HTML != nil && *f.HTML {
		renderer = config.RendererHTML
	}
	cfg.ApplyOverrides(*f.Mode, renderer)
	if f.TermStyle != nil && *f.TermStyle != "" {
		cfg.Markdown.TermStyle = *f.TermStyle
	}
	if f.Width != nil && *f.Width > 0 {
		cfg.Markdown.Width = *f.Width
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func modeFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return filterPrefix([]string{"fix", "guard"}, toComplete), cobra.ShellCompDirectiveNoFileComp
}
