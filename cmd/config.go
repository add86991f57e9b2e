package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2/styles"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/huh"
	"github.com/sahilm/fuzzy"
	"github.com/samsaffron/mdstream/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mdstream configuration",
	Long: `View or edit your mdstream configuration.

Examples:
  mdstream config                     # show current config
  mdstream config edit                # edit in $EDITOR
  mdstream config reset               # reset to defaults
  mdstream config completion zsh      # generate shell completions`,
	RunE: configShow, // Default to show
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file in $EDITOR",
	RunE:  configEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file path",
	RunE:  configPath,
}

var configCompletionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script.

Examples:
  mdstream config completion bash
  mdstream config completion zsh > ~/.local/share/zsh/site-functions/_mdstream`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      configCompletion,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  `Reset the configuration file to default values. This will overwrite any existing configuration.`,
	RunE:  configReset,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value while preserving comments.

Examples:
  mdstream config set mode guard
  mdstream config set smooth.base_speed 80
  mdstream config set markdown.term_style dracula
  mdstream config set pipeline.async false`,
	Args:              cobra.ExactArgs(2),
	RunE:              configSet,
	ValidArgsFunction: configSetCompletion,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value.

Examples:
  mdstream config get mode
  mdstream config get smooth.max_velocity`,
	Args:              cobra.ExactArgs(1),
	RunE:              configGet,
	ValidArgsFunction: configGetCompletion,
}

var resetYes bool

func init() {
	configResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Overwrite without asking")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCompletionCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}

func configShow(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !config.Exists() {
		fmt.Fprintf(out, "# No config file (using defaults)\n")
		fmt.Fprintf(out, "# Create one at: %s\n\n", configPath)
	} else {
		fmt.Fprintf(out, "# %s\n\n", configPath)
	}
	_, err = out.Write(config.Marshal(cfg))
	return err
}

func configEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Create default config if it doesn't exist
	if !config.Exists() {
		if err := config.Save(configPath, config.Defaults()); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	return editorCmd.Run()
}

func configPath(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func configReset(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if config.Exists() && !resetYes {
		if !isTerminal(os.Stdin) {
			return fmt.Errorf("%s exists; pass --yes to overwrite", configPath)
		}
		confirm := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Overwrite " + configPath + " with defaults?").
					Affirmative("Yes").
					Negative("No").
					Value(&confirm),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		if !confirm {
			fmt.Fprintln(cmd.OutOrStdout(), "Config left unchanged")
			return nil
		}
	}

	if err := config.Save(configPath, config.Defaults()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config reset to defaults: %s\n", configPath)
	return nil
}

func configCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return rootCmd.GenBashCompletion(out)
	case "zsh":
		return rootCmd.GenZshCompletion(out)
	case "fish":
		return rootCmd.GenFishCompletion(out, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	}
	return nil
}

// configSet sets a configuration value while preserving comments
func configSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]
	if err := checkKey(key); err != nil {
		return err
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file or create empty document
	var root yaml.Node
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	} else if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if root.Kind == 0 {
		// empty file
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}

	if err := setYAMLValue(&root, strings.Split(key, "."), value); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	// Reject values the loader would refuse before touching the file
	tmp, err := os.CreateTemp(configDir, "config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	tmp.Close()
	if _, err := config.LoadFile(tmp.Name()); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := os.WriteFile(configPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

// setYAMLValue navigates/creates the path in a yaml.Node tree and sets the value
func setYAMLValue(root *yaml.Node, path []string, value string) error {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	if current.Kind != yaml.MappingNode {
		return fmt.Errorf("root is not a mapping")
	}

	for i, part := range path {
		isLast := i == len(path)-1

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value != part {
				continue
			}
			if isLast {
				valueNode := current.Content[j+1]
				valueNode.Kind = yaml.ScalarNode
				valueNode.Value = value
				valueNode.Tag = ""
				valueNode.Content = nil
			} else {
				current = current.Content[j+1]
				if current.Kind != yaml.MappingNode {
					// Convert to mapping if needed
					current.Kind = yaml.MappingNode
					current.Content = nil
					current.Value = ""
					current.Tag = ""
				}
			}
			found = true
			break
		}

		if !found {
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: part}
			if isLast {
				current.Content = append(current.Content, keyNode, &yaml.Node{Kind: yaml.ScalarNode, Value: value})
			} else {
				newMapping := &yaml.Node{Kind: yaml.MappingNode}
				current.Content = append(current.Content, keyNode, newMapping)
				current = newMapping
			}
		}
	}

	return nil
}

// configGet prints a value from the config file, falling back to the
// effective value when the file does not set it.
func configGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := checkKey(key); err != nil {
		return err
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if value, err := getYAMLValue(&root, strings.Split(key, ".")); err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		}
	}

	value, err := defaultValue(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// getYAMLValue navigates the yaml.Node tree and returns the value at path
func getYAMLValue(root *yaml.Node, path []string) (string, error) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return "", fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	for _, part := range path {
		if current.Kind != yaml.MappingNode {
			return "", fmt.Errorf("path not found: expected mapping")
		}

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value == part {
				current = current.Content[j+1]
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("key not found: %s", part)
		}
	}

	if current.Kind == yaml.ScalarNode {
		return current.Value, nil
	}
	return "", fmt.Errorf("value is not a scalar")
}

// defaultValue looks key up in the default config document.
func defaultValue(key string) (string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(config.Marshal(config.Defaults()), &root); err != nil {
		return "", fmt.Errorf("failed to parse defaults: %w", err)
	}
	return getYAMLValue(&root, strings.Split(key, "."))
}

// configSetCompletion provides completions for config set
func configSetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return configKeyCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return configValueCompletions(args[0], toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configGetCompletion provides completions for config get
func configGetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return configKeyCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configKeys lists every leaf key of the config document.
func configKeys() []string {
	var root yaml.Node
	if err := yaml.Unmarshal(config.Marshal(config.Defaults()), &root); err != nil || len(root.Content) == 0 {
		return nil
	}
	var keys []string
	var walk func(n *yaml.Node, prefix string)
	walk = func(n *yaml.Node, prefix string) {
		for j := 0; j+1 < len(n.Content); j += 2 {
			key := prefix + n.Content[j].Value
			if v := n.Content[j+1]; v.Kind == yaml.MappingNode {
				walk(v, key+".")
			} else {
				keys = append(keys, key)
			}
		}
	}
	walk(root.Content[0], "")
	return keys
}

// checkKey rejects keys the config does not define, suggesting close matches.
func checkKey(key string) error {
	keys := configKeys()
	if slices.Contains(keys, key) {
		return nil
	}
	var hints []string
	for _, m := range fuzzy.Find(key, keys) {
		hints = append(hints, m.Str)
		if len(hints) == 3 {
			break
		}
	}
	if len(hints) == 0 {
		return fmt.Errorf("unknown config key %q", key)
	}
	return fmt.Errorf("unknown config key %q (did you mean %s?)", key, strings.Join(hints, ", "))
}

// configKeyCompletions returns completions for config keys
func configKeyCompletions(toComplete string) []string {
	return filterPrefix(configKeys(), toComplete)
}

// configValueCompletions returns completions for config values
func configValueCompletions(key, toComplete string) []string {
	switch key {
	case "mode":
		return filterPrefix([]string{"fix", "guard"}, toComplete)
	case "renderer":
		return filterPrefix([]string{config.RendererTerm, config.RendererHTML}, toComplete)
	case "markdown.term_style":
		names := []string{glamourstyles.AutoStyle}
		for name := range glamourstyles.DefaultStyles {
			names = append(names, name)
		}
		return filterPrefix(names, toComplete)
	case "markdown.code_style":
		return filterPrefix(styles.Names(), toComplete)
	case "markdown.sanitize", "pipeline.async", "pipeline.clear_on_error", "pipeline.auto_tail":
		return filterPrefix([]string{"true", "false"}, toComplete)
	}
	return nil
}

// filterPrefix filters a slice to items starting with prefix
func filterPrefix(items []string, prefix string) []string {
	var result []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}
