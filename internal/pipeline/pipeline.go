// Package pipeline ties the stream stages together: each tick advances the
// rate scheduler, repairs the emitted prefix, resolves it through the
// render cache or the renderer, and feeds changed output to the window
// manager.
//
// A Pipeline is driven from a single tick loop and is not safe for
// concurrent use. Only renderer calls run on their own goroutine.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samsaffron/mdstream/internal/cache"
	"github.com/samsaffron/mdstream/internal/markdown"
	"github.com/samsaffron/mdstream/internal/mdfix"
	"github.com/samsaffron/mdstream/internal/smooth"
	"github.com/samsaffron/mdstream/internal/window"
)

// RenderError is a renderer failure surfaced by the pipeline. The
// renderer's error (usually a *markdown.ParseError) is kept intact.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "render failed: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Frame describes the pipeline after one tick.
type Frame struct {
	// Text is the emitted prefix of the document.
	Text string
	// Output is the most recent successfully rendered output.
	Output string
	// Changed is set when Output changed during this tick.
	Changed bool
	// Pending is set while a render is in flight or queued.
	Pending bool
	// Err is the render error raised during this tick, if any.
	Err error
}

// Stats counts pipeline activity for the current session.
type Stats struct {
	Renders   int
	Errors    int
	Dropped   int
	Stale     int
	Cache     cache.Stats
	Scheduler smooth.State
}

type request struct {
	gen  uint64
	key  uint64
	text string
}

type result struct {
	gen uint64
	key uint64
	out string
	err error
}

type task struct {
	gen    uint64
	cancel context.CancelFunc
}

// Pipeline is one streaming session.
type Pipeline struct {
	renderer     markdown.Renderer
	sched        *smooth.Scheduler
	mode         mdfix.Mode
	cache        *cache.RenderCache
	win          *window.Manager
	async        bool
	clearOnError bool
	autoTail     bool
	logger       *slog.Logger

	pushed   strings.Builder
	complete bool
	finished bool

	lastText string
	output   string
	err      error

	gen      uint64
	inflight *task
	pending  *request
	results  chan result

	stats Stats
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScheduler sets the rate scheduler.
func WithScheduler(s *smooth.Scheduler) Option {
	return func(p *Pipeline) { p.sched = s }
}

// WithMode sets the repair mode applied before rendering.
func WithMode(m mdfix.Mode) Option {
	return func(p *Pipeline) { p.mode = m }
}

// WithCache sets the render cache. The pipeline owns it for its lifetime.
func WithCache(c *cache.RenderCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithWindow sets the window manager fed with rendered output.
func WithWindow(w *window.Manager) Option {
	return func(p *Pipeline) { p.win = w }
}

// WithAsync runs renderer calls on a goroutine. Results are applied on a
// later tick.
func WithAsync(on bool) Option {
	return func(p *Pipeline) { p.async = on }
}

// WithClearOnError drops the previous output when a render fails.
func WithClearOnError(on bool) Option {
	return func(p *Pipeline) { p.clearOnError = on }
}

// WithAutoTail switches the scheduler to tail mode whenever the pushed
// document becomes structurally complete again.
func WithAutoTail(on bool) Option {
	return func(p *Pipeline) { p.autoTail = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline around r. Unset collaborators get defaults: a
// scheduler with DefaultConfig, a cache of DefaultCapacity and a window
// manager that segments HTML.
func New(r markdown.Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer: r,
		complete: true,
		results:  make(chan result, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sched == nil {
		p.sched = smooth.New(smooth.DefaultConfig())
	}
	if p.cache == nil {
		p.cache = cache.New(cache.DefaultCapacity)
	}
	if p.win == nil {
		cfg := window.DefaultConfig()
		p.win = window.New(window.NewHTMLSegmenter(cfg), cfg)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Push queues a chunk of the document.
func (p *Pipeline) Push(chunk string) {
	p.sched.Push(chunk)
	p.pushed.WriteString(chunk)
	if !p.autoTail {
		return
	}
	complete := mdfix.Analyze(p.pushed.String()).Complete()
	if complete && !p.complete {
		p.logger.Debug("document complete, draining", "queued", p.sched.State().Queued)
		p.sched.ReceiveTailChunk("")
	}
	p.complete = complete
}

// Finish queues the final chunk and drains the rest at full speed.
func (p *Pipeline) Finish(chunk string) {
	p.pushed.WriteString(chunk)
	p.sched.ReceiveTailChunk(chunk)
	p.finished = true
}

// Tick advances the session by one frame.
func (p *Pipeline) Tick() Frame {
	var f Frame
	for drained := false; !drained; {
		select {
		case r := <-p.results:
			p.receive(r, &f)
		default:
			drained = true
		}
	}
	if p.inflight == nil && p.pending != nil {
		req := *p.pending
		p.pending = nil
		p.dispatch(req)
	}

	text := p.sched.Tick()
	if text != p.lastText {
		p.lastText = text
		p.request(text, &f)
	}
	return p.frame(text, f)
}

// Flush emits everything queued and renders the full text synchronously,
// superseding any render still in flight. It returns ctx's error if the
// renderer does not finish in time.
func (p *Pipeline) Flush(ctx context.Context) (Frame, error) {
	var f Frame
	text := p.sched.FlushAll()
	p.cancelInflight()
	p.pending = nil
	p.lastText = text

	fixed := mdfix.Apply(text, p.mode)
	key := cache.Key(fixed)
	p.gen++
	gen := p.gen
	out, ok := p.cache.Get(key)
	var err error
	if !ok {
		p.stats.Renders++
		out, err = renderContext(ctx, p.renderer, fixed)
		if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
			return p.frame(text, f), cerr
		}
		if err == nil {
			p.cache.Set(key, out)
		}
	}
	p.apply(gen, out, err, &f)
	return p.frame(text, f), f.Err
}

func renderContext(ctx context.Context, r markdown.Renderer, text string) (string, error) {
	ch := make(chan result, 1)
	go func() {
		out, err := r.Render(text)
		ch <- result{out: out, err: err}
	}()
	select {
	case res := <-ch:
		return res.out, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// request resolves the repaired form of text from the cache or starts a
// render for it. A newer request always supersedes older ones.
func (p *Pipeline) request(text string, f *Frame) {
	fixed := mdfix.Apply(text, p.mode)
	key := cache.Key(fixed)
	p.gen++
	gen := p.gen

	if out, ok := p.cache.Get(key); ok {
		if p.pending != nil {
			p.stats.Dropped++
			p.pending = nil
		}
		p.apply(gen, out, nil, f)
		return
	}

	if !p.async {
		p.stats.Renders++
		out, err := p.renderer.Render(fixed)
		if err == nil {
			p.cache.Set(key, out)
		}
		p.apply(gen, out, err, f)
		return
	}

	req := request{gen: gen, key: key, text: fixed}
	if p.inflight != nil {
		if p.pending != nil {
			p.stats.Dropped++
		}
		p.pending = &req
		return
	}
	p.dispatch(req)
}

func (p *Pipeline) dispatch(req request) {
	ctx, cancel := context.WithCancel(context.Background())
	p.inflight = &task{gen: req.gen, cancel: cancel}
	p.stats.Renders++
	p.logger.Debug("render dispatched", "gen", req.gen, "bytes", len(req.text))

	results := p.results
	r := p.renderer
	go func() {
		out, err := r.Render(req.text)
		select {
		case results <- result{gen: req.gen, key: req.key, out: out, err: err}:
		case <-ctx.Done():
		}
	}()
}

// receive handles a finished async render. Successful output is cached
// even when stale; only the latest generation reaches the window.
func (p *Pipeline) receive(r result, f *Frame) {
	if p.inflight != nil && p.inflight.gen == r.gen {
		p.inflight.cancel()
		p.inflight = nil
	}
	if r.err == nil {
		p.cache.Set(r.key, r.out)
	}
	if r.gen != p.gen {
		p.stats.Stale++
		p.logger.Debug("discarding stale render", "gen", r.gen, "latest", p.gen)
		return
	}
	p.apply(r.gen, r.out, r.err, f)
}

func (p *Pipeline) apply(gen uint64, out string, err error, f *Frame) {
	if err != nil {
		p.stats.Errors++
		p.err = &RenderError{Err: err}
		f.Err = p.err
		p.logger.Warn("render failed", "gen", gen, "error", err)
		if p.clearOnError && p.output != "" {
			p.output = ""
			p.win.Clear()
			f.Changed = true
		}
		return
	}
	p.err = nil
	if out == p.output {
		return
	}
	p.output = out
	p.win.SetContent(out)
	f.Changed = true
}

func (p *Pipeline) frame(text string, f Frame) Frame {
	f.Text = text
	f.Output = p.output
	f.Pending = p.inflight != nil || p.pending != nil
	return f
}

func (p *Pipeline) cancelInflight() {
	if p.inflight != nil {
		p.inflight.cancel()
		p.inflight = nil
	}
}

// Refresh makes the next tick resolve the emitted text again even if it
// has not changed. Callers use it after invalidating the cache, for
// example when the render width changes.
func (p *Pipeline) Refresh() {
	p.lastText = ""
}

// Window returns the blocks visible at offset within a viewport of the
// given height.
func (p *Pipeline) Window(offset, viewport float64) window.Result {
	return p.win.VisibleBlocks(offset, viewport)
}

// UpdateBlockHeight records a measured block height.
func (p *Pipeline) UpdateBlockHeight(index int, height float64) bool {
	return p.win.UpdateBlockHeight(index, height)
}

// Reset starts a new session. An in-flight render is cancelled and its
// result ignored, and text, output, error, stats, scheduler and window state
// are cleared. The render cache is not cleared: it is keyed by the repaired
// text, so entries stay valid across sessions and a replayed or similar
// stream renders from cache. Clear the cache given to WithCache to drop it.
func (p *Pipeline) Reset() {
	p.cancelInflight()
	p.pending = nil
	p.gen++
	p.sched.Reset()
	p.win.Clear()
	p.pushed.Reset()
	p.complete = true
	p.finished = false
	p.lastText = ""
	p.output = ""
	p.err = nil
	p.stats = Stats{}
}

// Done reports whether the final chunk has been emitted and rendered.
func (p *Pipeline) Done() bool {
	return p.finished &&
		p.sched.Drained() &&
		p.inflight == nil &&
		p.pending == nil &&
		p.lastText == p.sched.Emitted()
}

// Output returns the latest rendered output.
func (p *Pipeline) Output() string {
	return p.output
}

// Err returns the error from the most recent render, or nil once a later
// render succeeds.
func (p *Pipeline) Err() error {
	return p.err
}

// Mode returns the repair mode.
func (p *Pipeline) Mode() mdfix.Mode {
	return p.mode
}

// Stats returns counters for the session.
func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.Cache = p.cache.Stats()
	s.Scheduler = p.sched.State()
	return s
}
