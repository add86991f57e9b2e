package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samsaffron/mdstream/internal/mdfix"
	"github.com/samsaffron/mdstream/internal/smooth"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Mode != "fix" || cfg.Renderer != RendererTerm {
		t.Errorf("mode/renderer = %q/%q, want fix/term", cfg.Mode, cfg.Renderer)
	}
	if cfg.Smooth != smooth.DefaultConfig() {
		t.Errorf("Smooth = %+v, want %+v", cfg.Smooth, smooth.DefaultConfig())
	}
	if cfg.Cache.Capacity != 200 {
		t.Errorf("Cache.Capacity = %d, want 200", cfg.Cache.Capacity)
	}
	if cfg.Stream.Interval != 30*time.Millisecond {
		t.Errorf("Stream.Interval = %v, want 30ms", cfg.Stream.Interval)
	}
	if !cfg.Markdown.Sanitize || !cfg.Pipeline.Async {
		t.Error("sanitize and async should default to true")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `mode: guard
smooth:
  base_speed: 5
  max_velocity: 20
cache:
  capacity: 8
stream:
  interval: 5ms
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.FixMode() != mdfix.ModeGuard {
		t.Errorf("FixMode() = %v, want guard", cfg.FixMode())
	}
	if cfg.Smooth.BaseSpeed != 5 || cfg.Smooth.MaxVelocity != 20 {
		t.Errorf("Smooth = %+v", cfg.Smooth)
	}
	if cfg.Smooth.Damping != smooth.DefaultDamping {
		t.Errorf("Smooth.Damping = %v, want default %v", cfg.Smooth.Damping, smooth.DefaultDamping)
	}
	if cfg.Cache.Capacity != 8 || cfg.Stream.Interval != 5*time.Millisecond {
		t.Errorf("cache/stream = %d/%v", cfg.Cache.Capacity, cfg.Stream.Interval)
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("MDSTREAM_RENDERER", "html")
	t.Setenv("MDSTREAM_CACHE_CAPACITY", "3")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Renderer != RendererHTML || cfg.Cache.Capacity != 3 {
		t.Errorf("renderer/capacity = %q/%d, want html/3", cfg.Renderer, cfg.Cache.Capacity)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: sideways\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() with bad mode error = nil, want error")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Defaults()
	cfg.ApplyOverrides("guard", "")
	if cfg.Mode != "guard" || cfg.Renderer != RendererTerm {
		t.Errorf("after overrides mode=%q renderer=%q", cfg.Mode, cfg.Renderer)
	}
	cfg.ApplyOverrides("", "html")
	if cfg.Mode != "guard" || cfg.Renderer != RendererHTML {
		t.Errorf("after overrides mode=%q renderer=%q", cfg.Mode, cfg.Renderer)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	want := Defaults()
	want.Mode = "guard"
	want.Smooth.BaseSpeed = 42
	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got.Mode != "guard" || got.Smooth.BaseSpeed != 42 || got.Stream.Jitter != want.Stream.Jitter {
		t.Errorf("round trip = %+v", got)
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", "mdstream") {
		t.Errorf("GetConfigDir() = %q", dir)
	}
}
