// Package tui is the bubbletea live view: it replays a chunk stream
// through a pipeline at frame rate and shows only the visible blocks.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samsaffron/mdstream/internal/cache"
	"github.com/samsaffron/mdstream/internal/feed"
	"github.com/samsaffron/mdstream/internal/markdown"
	"github.com/samsaffron/mdstream/internal/mdfix"
	"github.com/samsaffron/mdstream/internal/pipeline"
	"github.com/samsaffron/mdstream/internal/smooth"
	"github.com/samsaffron/mdstream/internal/window"
)

// ChunkMsg delivers one chunk of the stream.
type ChunkMsg feed.Chunk

type streamClosedMsg struct{}

// widthSetter is implemented by renderers that wrap to a width.
type widthSetter interface {
	SetWidth(width int) error
}

// Options configures the live view.
type Options struct {
	Mode          mdfix.Mode
	Smooth        smooth.Config
	CacheCapacity int
	Window        window.Config
	Async         bool
	AutoTail      bool
	ClearOnError  bool
	// Interval is the frame interval; zero uses smooth.FrameInterval.
	Interval time.Duration
	Logger   *slog.Logger
	// Clock overrides the scheduler clock.
	Clock func() time.Time
}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

// Model is the live view model.
type Model struct {
	pipe     *pipeline.Pipeline
	renderer markdown.Renderer
	cache    *cache.RenderCache
	seg      *window.TextSegmenter
	chunks   <-chan feed.Chunk
	keyMap   KeyMap
	interval time.Duration
	mode     mdfix.Mode

	width  int
	height int
	offset int
	follow bool

	ticking bool
	err     error
}

// New creates a live view reading chunks from ch.
func New(r markdown.Renderer, ch <-chan feed.Chunk, opts Options) *Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = smooth.FrameInterval
	}
	var schedOpts []smooth.Option
	if opts.Clock != nil {
		schedOpts = append(schedOpts, smooth.WithClock(opts.Clock))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := cache.New(opts.CacheCapacity)
	seg := window.NewTextSegmenter(opts.Window, 0)
	m := &Model{
		renderer: r,
		cache:    c,
		seg:      seg,
		chunks:   ch,
		keyMap:   DefaultKeyMap(),
		interval: interval,
		mode:     opts.Mode,
		follow:   true,
	}
	m.pipe = pipeline.New(r,
		pipeline.WithScheduler(smooth.New(opts.Smooth, schedOpts...)),
		pipeline.WithMode(opts.Mode),
		pipeline.WithCache(c),
		pipeline.WithWindow(window.New(seg, opts.Window)),
		pipeline.WithAsync(opts.Async),
		pipeline.WithAutoTail(opts.AutoTail),
		pipeline.WithClearOnError(opts.ClearOnError),
		pipeline.WithLogger(logger),
	)
	return m
}

// Pipeline returns the underlying pipeline.
func (m *Model) Pipeline() *pipeline.Pipeline {
	return m.pipe
}

// Init starts the frame loop and the chunk reader.
func (m *Model) Init() tea.Cmd {
	m.ticking = true
	return tea.Batch(smooth.Tick(m.interval), m.waitChunk())
}

func (m *Model) waitChunk() tea.Cmd {
	if m.chunks == nil {
		return nil
	}
	ch := m.chunks
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return ChunkMsg(c)
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, m.ensureTicking()

	case ChunkMsg:
		if msg.Last {
			m.pipe.Finish(msg.Text)
			m.chunks = nil
			return m, m.ensureTicking()
		}
		m.pipe.Push(msg.Text)
		return m, tea.Batch(m.waitChunk(), m.ensureTicking())

	case streamClosedMsg:
		m.chunks = nil
		m.pipe.Finish("")
		return m, m.ensureTicking()

	case smooth.TickMsg:
		f := m.pipe.Tick()
		m.observe(f)
		if m.pipe.Done() {
			m.ticking = false
			return m, nil
		}
		return m, smooth.Tick(m.interval)
	}
	return m, nil
}

// ensureTicking restarts the frame loop after it stopped at end of stream.
func (m *Model) ensureTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return smooth.Tick(m.interval)
}

func (m *Model) observe(f pipeline.Frame) {
	if f.Err != nil {
		m.err = f.Err
	} else if f.Changed {
		m.err = nil
	}
	if f.Changed && m.follow {
		m.offset = m.maxScroll()
	}
}

func (m *Model) resize(width, height int) {
	if width == m.width && height == m.height {
		return
	}
	widthChanged := width != m.width
	m.width, m.height = width, height
	if widthChanged {
		if ws, ok := m.renderer.(widthSetter); ok {
			if err := ws.SetWidth(width); err != nil {
				m.err = err
			}
		}
		m.seg.SetWidth(width)
		// cached output was wrapped for the old width
		m.cache.Clear()
		m.pipe.Refresh()
	}
	m.clampScroll()
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.ScrollUp):
		m.scrollBy(-1)

	case key.Matches(msg, m.keyMap.ScrollDown):
		m.scrollBy(1)

	case key.Matches(msg, m.keyMap.PageUp):
		m.scrollBy(-m.viewportHeight())

	case key.Matches(msg, m.keyMap.PageDown):
		m.scrollBy(m.viewportHeight())

	case key.Matches(msg, m.keyMap.GoToTop):
		m.offset = 0
		m.follow = false

	case key.Matches(msg, m.keyMap.GoToBottom):
		m.follow = true
		m.offset = m.maxScroll()

	case key.Matches(msg, m.keyMap.Flush):
		f, err := m.pipe.Flush(context.Background())
		if err != nil {
			m.err = err
		}
		m.follow = true
		m.observe(f)
		m.offset = m.maxScroll()
	}
	return m, nil
}

func (m *Model) scrollBy(delta int) {
	m.offset += delta
	m.clampScroll()
	m.follow = m.offset >= m.maxScroll()
}

func (m *Model) viewportHeight() int {
	return max(1, m.height-1)
}

func (m *Model) totalRows() int {
	return int(m.pipe.Window(0, 0).TotalHeight)
}

func (m *Model) maxScroll() int {
	return max(0, m.totalRows()-m.viewportHeight())
}

func (m *Model) clampScroll() {
	m.offset = min(max(m.offset, 0), m.maxScroll())
}

// View renders the visible rows followed by a status line.
func (m *Model) View() string {
	vh := m.viewportHeight()
	res := m.pipe.Window(float64(m.offset), float64(vh))

	var content strings.Builder
	for _, b := range res.Blocks {
		content.WriteString(b.Content)
	}
	lines := strings.Split(strings.TrimSuffix(content.String(), "\n"), "\n")
	if content.Len() == 0 {
		lines = nil
	}
	start := min(max(m.offset-int(res.PaddingTop), 0), len(lines))
	end := min(start+vh, len(lines))
	visible := lines[start:end]

	var b strings.Builder
	for _, line := range visible {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for i := len(visible); i < vh; i++ {
		b.WriteByte('\n')
	}
	b.WriteString(m.statusLine())
	return b.String()
}

func (m *Model) statusLine() string {
	st := m.pipe.Stats()
	status := fmt.Sprintf("%s  %4.0f c/s  queue %d  cache %3.0f%%  renders %d",
		m.mode, st.Scheduler.Velocity, st.Scheduler.Queued, st.Cache.HitRate()*100, st.Renders)
	if st.Scheduler.Tail {
		status += "  tail"
	}
	line := statusStyle.Render(status)
	switch {
	case m.err != nil:
		line += "  " + errorStyle.Render(m.err.Error())
	case m.pipe.Done():
		line += "  " + doneStyle.Render("done")
	}
	return line
}
