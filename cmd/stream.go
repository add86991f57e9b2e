package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/feed"
	"github.com/samsaffron/mdstream/internal/markdown"
	"github.com/samsaffron/mdstream/internal/pipeline"
	"github.com/samsaffron/mdstream/internal/signal"
	"github.com/samsaffron/mdstream/internal/smooth"
	"github.com/samsaffron/mdstream/internal/tui"
	"github.com/samsaffron/mdstream/internal/window"
	"github.com/spf13/cobra"
)

var (
	streamFlags CommonFlags
	streamPlain bool
	streamSeed  uint64
)

var streamCmd = &cobra.Command{
	Use:   "stream [file]",
	Short: "Replay a document as a live markdown stream",
	Long: `Split a document into randomly sized chunks and feed them through the
streaming pipeline, as if they were arriving from a model.

On a terminal the stream is shown in a live view (j/k scroll, g/G top/bottom,
f flush, q quit). Otherwise the pipeline runs headless and the final output
is printed.

Examples:
  mdstream stream README.md
  mdstream stream --mode guard --seed 7 notes.md
  mdstream stream --plain --html notes.md > out.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStream,
}

func init() {
	AddCommonFlags(streamCmd, &streamFlags)
	streamCmd.Flags().BoolVar(&streamPlain, "plain", false, "Run without the live view and print the final output")
	streamCmd.Flags().Uint64Var(&streamSeed, "seed", 0, "Chunking seed (overrides config)")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := streamFlags.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Stream.Seed = streamSeed
	}
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	chunks := feed.Split(text, cfg.Stream.MinChunk, cfg.Stream.MaxChunk, cfg.Stream.Seed)
	slog.Debug("stream", "bytes", len(text), "chunks", len(chunks), "mode", cfg.Mode)
	ch := feed.Stream(ctx, chunks, cfg.Stream.Interval, cfg.Stream.Jitter)

	width := outputWidth(cfg)
	r, err := newRenderer(cfg, width)
	if err != nil {
		return err
	}

	live := !streamPlain && cfg.Renderer == config.RendererTerm && isTerminal(os.Stdout)
	if !live {
		return runHeadless(ctx, cmd.OutOrStdout(), r, cfg, width, ch)
	}

	m := tui.New(r, ch, tui.Options{
		Mode:          cfg.FixMode(),
		Smooth:        cfg.Smooth,
		CacheCapacity: cfg.Cache.Capacity,
		Window:        cfg.Window,
		Async:         cfg.Pipeline.Async,
		AutoTail:      cfg.Pipeline.AutoTail,
		ClearOnError:  cfg.Pipeline.ClearOnError,
		Logger:        slog.Default(),
	})
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if !isTerminal(os.Stdin) {
		// stdin carried the document; read keys from the terminal
		opts = append(opts, tea.WithInputTTY())
	}
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("live view: %w", err)
	}
	return nil
}

// runHeadless drives the pipeline at the frame interval until the stream is
// finished and fully revealed, then prints the final output.
func runHeadless(ctx context.Context, w io.Writer, r markdown.Renderer, cfg *config.Config, width int, ch <-chan feed.Chunk) error {
	opts := []pipeline.Option{
		pipeline.WithScheduler(smooth.New(cfg.Smooth)),
		pipeline.WithMode(cfg.FixMode()),
		pipeline.WithAsync(cfg.Pipeline.Async),
		pipeline.WithClearOnError(cfg.Pipeline.ClearOnError),
		pipeline.WithAutoTail(cfg.Pipeline.AutoTail),
		pipeline.WithLogger(slog.Default()),
	}
	if cfg.Renderer == config.RendererTerm {
		seg := window.NewTextSegmenter(cfg.Window, width)
		opts = append(opts, pipeline.WithWindow(window.New(seg, cfg.Window)))
	} else {
		opts = append(opts, pipeline.WithWindow(window.New(window.NewHTMLSegmenter(cfg.Window), cfg.Window)))
	}
	p := pipeline.New(r, opts...)

	ticker := time.NewTicker(smooth.FrameInterval)
	defer ticker.Stop()

	frames, finished := 0, false
loop:
	for {
		select {
		case <-ctx.Done():
			// interrupted: show everything received so far, errors surface via p.Err
			p.Flush(context.Background())
			break loop
		case c, ok := <-ch:
			if !ok {
				ch = nil
				if !finished {
					p.Finish("")
					finished = true
				}
				continue
			}
			if c.Last {
				p.Finish(c.Text)
				finished = true
			} else {
				p.Push(c.Text)
			}
		case <-ticker.C:
			f := p.Tick()
			if f.Changed {
				frames++
				slog.Debug("frame", "n", frames, "text", len(f.Text), "output", len(f.Output), "pending", f.Pending)
			}
			if p.Done() {
				break loop
			}
		}
	}

	st := p.Stats()
	slog.Debug("stream done",
		"renders", st.Renders,
		"errors", st.Errors,
		"dropped", st.Dropped,
		"stale", st.Stale,
		"cache_hit_rate", st.Cache.HitRate())

	fmt.Fprintln(w, trimFinal(p.Output()))
	if err := p.Err(); err != nil {
		return err
	}
	return nil
}
