package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samsaffron/mdstream/internal/cache"
	"github.com/samsaffron/mdstream/internal/mdfix"
	"github.com/samsaffron/mdstream/internal/smooth"
	"github.com/samsaffron/mdstream/internal/window"
	"github.com/spf13/viper"
)

// Renderer names accepted by the renderer key.
const (
	RendererTerm = "term"
	RendererHTML = "html"
)

type Config struct {
	Mode     string         `mapstructure:"mode"`
	Renderer string         `mapstructure:"renderer"`
	Smooth   smooth.Config  `mapstructure:"smooth"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Window   window.Config  `mapstructure:"window"`
	Markdown MarkdownConfig `mapstructure:"markdown"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Stream   StreamConfig   `mapstructure:"stream"`
}

type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// MarkdownConfig configures both renderers
type MarkdownConfig struct {
	TermStyle string `mapstructure:"term_style"` // glamour style name or auto
	CodeStyle string `mapstructure:"code_style"` // chroma style; empty emits CSS classes
	Sanitize  bool   `mapstructure:"sanitize"`
	Width     int    `mapstructure:"width"` // 0 uses the terminal width
}

type PipelineConfig struct {
	Async        bool `mapstructure:"async"`
	ClearOnError bool `mapstructure:"clear_on_error"`
	AutoTail     bool `mapstructure:"auto_tail"`
}

// StreamConfig controls how `mdstream stream` replays a file
type StreamConfig struct {
	MinChunk int           `mapstructure:"min_chunk"`
	MaxChunk int           `mapstructure:"max_chunk"`
	Interval time.Duration `mapstructure:"interval"`
	Jitter   time.Duration `mapstructure:"jitter"`
	Seed     uint64        `mapstructure:"seed"`
}

// Load reads the config file from the config directory, falling back to
// defaults when it does not exist.
func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}
	v := newViper()
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile reads config from an explicit file.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MDSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", mdfix.ModeFix.String())
	v.SetDefault("renderer", RendererTerm)

	sc := smooth.DefaultConfig()
	v.SetDefault("smooth.base_speed", sc.BaseSpeed)
	v.SetDefault("smooth.max_velocity", sc.MaxVelocity)
	v.SetDefault("smooth.acceleration", sc.Acceleration)
	v.SetDefault("smooth.damping", sc.Damping)
	v.SetDefault("smooth.tail_floor", sc.TailFloor)
	v.SetDefault("smooth.ref_rate", sc.RefRate)

	v.SetDefault("cache.capacity", cache.DefaultCapacity)

	v.SetDefault("window.min_block_size", window.DefaultMinBlockSize)
	v.SetDefault("window.large_element_threshold", window.DefaultLargeElementThreshold)
	v.SetDefault("window.viewport_buffer", window.DefaultViewportBuffer)

	v.SetDefault("markdown.term_style", "auto")
	v.SetDefault("markdown.code_style", "")
	v.SetDefault("markdown.sanitize", true)
	v.SetDefault("markdown.width", 0)

	v.SetDefault("pipeline.async", true)
	v.SetDefault("pipeline.clear_on_error", false)
	v.SetDefault("pipeline.auto_tail", false)

	v.SetDefault("stream.min_chunk", 1)
	v.SetDefault("stream.max_chunk", 12)
	v.SetDefault("stream.interval", "30ms")
	v.SetDefault("stream.jitter", "40ms")
	v.SetDefault("stream.seed", 1)
}

func load(v *viper.Viper) (*Config, error) {
	// Read config file (optional - won't error if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be clamped.
func (c *Config) Validate() error {
	if _, err := mdfix.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	switch c.Renderer {
	case RendererTerm, RendererHTML:
	default:
		return fmt.Errorf("renderer: unknown renderer %q (want %s or %s)", c.Renderer, RendererTerm, RendererHTML)
	}
	return nil
}

// FixMode returns the parsed repair mode.
func (c *Config) FixMode() mdfix.Mode {
	m, _ := mdfix.ParseMode(c.Mode)
	return m
}

// ApplyOverrides applies command-line overrides. Empty values are ignored.
func (c *Config) ApplyOverrides(mode, renderer string) {
	if mode != "" {
		c.Mode = mode
	}
	if renderer != "" {
		c.Renderer = renderer
	}
}

// GetConfigDir returns the XDG config directory for mdstream.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "mdstream"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "mdstream"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes a commented config file with the values in cfg.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, Marshal(cfg), 0644)
}

// Marshal formats cfg as a commented YAML document.
func Marshal(cfg *Config) []byte {
	return []byte(fmt.Sprintf(`# repair mode applied before each render: fix or guard
mode: %s

# term (glamour) or html (goldmark)
renderer: %s

smooth:
  base_speed: %g      # chars/sec at rest
  max_velocity: %g    # chars/sec ceiling, also the drain speed after the tail chunk
  acceleration: %g
  damping: %g         # per-frame velocity decay at ref_rate
  tail_floor: %d
  ref_rate: %g

cache:
  capacity: %d

window:
  min_block_size: %d
  large_element_threshold: %d
  viewport_buffer: %d

markdown:
  term_style: %s
  code_style: %q   # chroma style for inline colors; empty emits CSS classes
  sanitize: %t
  width: %d

pipeline:
  async: %t
  clear_on_error: %t
  auto_tail: %t

stream:
  min_chunk: %d
  max_chunk: %d
  interval: %s
  jitter: %s
  seed: %d
`,
		cfg.Mode, cfg.Renderer,
		cfg.Smooth.BaseSpeed, cfg.Smooth.MaxVelocity, cfg.Smooth.Acceleration, cfg.Smooth.Damping, cfg.Smooth.TailFloor, cfg.Smooth.RefRate,
		cfg.Cache.Capacity,
		cfg.Window.MinBlockSize, cfg.Window.LargeElementThreshold, cfg.Window.ViewportBuffer,
		cfg.Markdown.TermStyle, cfg.Markdown.CodeStyle, cfg.Markdown.Sanitize, cfg.Markdown.Width,
		cfg.Pipeline.Async, cfg.Pipeline.ClearOnError, cfg.Pipeline.AutoTail,
		cfg.Stream.MinChunk, cfg.Stream.MaxChunk, cfg.Stream.Interval, cfg.Stream.Jitter, cfg.Stream.Seed,
	))
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults alone always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}
