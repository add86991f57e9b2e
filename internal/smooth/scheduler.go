package smooth

import (
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// FrameInterval is the default tick cadence (60fps).
const FrameInterval = 16 * time.Millisecond

// Default kinematic parameters. Speeds are in characters per second.
const (
	DefaultBaseSpeed    = 60.0
	DefaultMaxVelocity  = 600.0
	DefaultAcceleration = 240.0
	DefaultDamping      = 0.85
	DefaultTailFloor    = 1
	DefaultRefRate      = 60.0
)

// TickMsg is sent to trigger the next frame of smooth emission
type TickMsg struct {
	Time time.Time
}

// Tick returns a tea.Cmd that sends a TickMsg after the given interval.
// A non-positive interval uses FrameInterval.
func Tick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = FrameInterval
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// Config holds the velocity model parameters.
type Config struct {
	BaseSpeed    float64 `mapstructure:"base_speed"`
	MaxVelocity  float64 `mapstructure:"max_velocity"`
	Acceleration float64 `mapstructure:"acceleration"`
	Damping      float64 `mapstructure:"damping"`
	// TailFloor is the minimum number of characters emitted per tick while
	// draining after the tail chunk.
	TailFloor int `mapstructure:"tail_floor"`
	// RefRate normalizes damping to a per-frame factor at this many frames/sec.
	RefRate float64 `mapstructure:"ref_rate"`
}

// DefaultConfig returns the default scheduler parameters.
func DefaultConfig() Config {
	return Config{
		BaseSpeed:    DefaultBaseSpeed,
		MaxVelocity:  DefaultMaxVelocity,
		Acceleration: DefaultAcceleration,
		Damping:      DefaultDamping,
		TailFloor:    DefaultTailFloor,
		RefRate:      DefaultRefRate,
	}
}

// Normalize clamps out-of-range values to the nearest valid value.
// Invalid parameters are corrected rather than reported.
func (c Config) Normalize() Config {
	if !(c.BaseSpeed > 0) || math.IsInf(c.BaseSpeed, 0) {
		c.BaseSpeed = DefaultBaseSpeed
	}
	if math.IsNaN(c.MaxVelocity) || c.MaxVelocity < c.BaseSpeed {
		c.MaxVelocity = c.BaseSpeed
	}
	if math.IsInf(c.MaxVelocity, 0) {
		c.MaxVelocity = math.MaxFloat32
	}
	if !(c.Acceleration >= 0) || math.IsInf(c.Acceleration, 0) {
		c.Acceleration = 0
	}
	if math.IsNaN(c.Damping) || c.Damping < 0 {
		c.Damping = 0
	}
	if c.Damping >= 1 {
		c.Damping = math.Nextafter(1, 0)
	}
	if c.TailFloor < 1 {
		c.TailFloor = 1
	}
	if !(c.RefRate > 0) || math.IsInf(c.RefRate, 0) {
		c.RefRate = DefaultRefRate
	}
	return c
}

// SpeedParams is a partial update for SetSpeed. Nil fields are left untouched.
type SpeedParams struct {
	BaseSpeed    *float64
	MaxVelocity  *float64
	Acceleration *float64
	Damping      *float64
}

// State is a snapshot of the scheduler's progress.
type State struct {
	Emitted  int // characters emitted so far
	Queued   int // characters waiting
	Velocity float64
	Carry    float64
	Tail     bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler releases queued text at a smoothly varying rate.
// Push and ReceiveTailChunk only enqueue; all progress happens in Tick.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	queue       string
	queuedRunes int
	emitted     strings.Builder
	emittedLen  int

	velocity float64
	carry    float64
	tail     bool
	last     time.Time
}

// New creates a Scheduler with the given config. Out-of-range values are clamped.
func New(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg: cfg.Normalize(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.velocity = s.cfg.BaseSpeed
	s.last = s.now()
	return s
}

// Config returns the effective (clamped) configuration.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Push appends a chunk to the pending queue.
func (s *Scheduler) Push(chunk string) {
	if chunk == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueue(chunk)
}

// ReceiveTailChunk appends the final chunk and switches to tail mode, which
// drains the queue at maximum velocity. An empty chunk is allowed.
func (s *Scheduler) ReceiveTailChunk(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueue(chunk)
	s.tail = true
}

func (s *Scheduler) enqueue(chunk string) {
	s.queue += chunk
	s.queuedRunes += utf8.RuneCountInString(chunk)
}

// Tick advances the integrator by the time elapsed since the previous tick
// and returns the cumulative emitted text.
func (s *Scheduler) Tick() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dt := now.Sub(s.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	s.last = now

	decay := math.Pow(s.cfg.Damping, dt*s.cfg.RefRate)

	if s.queuedRunes == 0 {
		s.tail = false
		s.velocity = math.Max(s.cfg.BaseSpeed, s.velocity*decay)
		return s.emitted.String()
	}

	var count int
	if s.tail {
		s.velocity = s.cfg.MaxVelocity
		count = s.integrate(dt)
		if count < s.cfg.TailFloor {
			count = s.cfg.TailFloor
		}
	} else {
		v := s.velocity*decay + s.cfg.Acceleration*dt
		s.velocity = clamp(v, s.cfg.BaseSpeed, s.cfg.MaxVelocity)
		count = s.integrate(dt)
	}

	s.emit(count)
	if s.queuedRunes == 0 {
		s.tail = false
	}
	return s.emitted.String()
}

// integrate returns floor(v·dt + carry) and keeps the fractional remainder.
func (s *Scheduler) integrate(dt float64) int {
	need := s.velocity*dt + s.carry
	if need < 0 || math.IsNaN(need) {
		s.carry = 0
		return 0
	}
	if need > float64(math.MaxInt32) {
		s.carry = 0
		return math.MaxInt32
	}
	count := math.Floor(need)
	s.carry = need - count
	return int(count)
}

// emit moves up to n runes from the queue to the output.
func (s *Scheduler) emit(n int) {
	if n <= 0 {
		return
	}
	if n >= s.queuedRunes {
		s.emitted.WriteString(s.queue)
		s.emittedLen += s.queuedRunes
		s.queue = ""
		s.queuedRunes = 0
		return
	}
	cut := 0
	for i := 0; i < n; i++ {
		_, size := utf8.DecodeRuneInString(s.queue[cut:])
		cut += size
	}
	s.emitted.WriteString(s.queue[:cut])
	s.queue = s.queue[cut:]
	s.emittedLen += n
	s.queuedRunes -= n
}

// FlushAll moves everything queued to the output and returns the full text.
func (s *Scheduler) FlushAll() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(s.queuedRunes)
	s.tail = false
	return s.emitted.String()
}

// SetSpeed updates the velocity parameters at runtime. The current velocity
// is pulled back into the new [BaseSpeed, MaxVelocity] range.
func (s *Scheduler) SetSpeed(p SpeedParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	if p.BaseSpeed != nil {
		cfg.BaseSpeed = *p.BaseSpeed
	}
	if p.MaxVelocity != nil {
		cfg.MaxVelocity = *p.MaxVelocity
	}
	if p.Acceleration != nil {
		cfg.Acceleration = *p.Acceleration
	}
	if p.Damping != nil {
		cfg.Damping = *p.Damping
	}
	s.cfg = cfg.Normalize()
	s.velocity = clamp(s.velocity, s.cfg.BaseSpeed, s.cfg.MaxVelocity)
}

// Reset clears queue, output and carry and restarts from BaseSpeed.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = ""
	s.queuedRunes = 0
	s.emitted.Reset()
	s.emittedLen = 0
	s.carry = 0
	s.tail = false
	s.velocity = s.cfg.BaseSpeed
	s.last = s.now()
}

// Emitted returns the cumulative emitted text without advancing.
func (s *Scheduler) Emitted() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted.String()
}

// Drained reports whether nothing is waiting to be emitted.
func (s *Scheduler) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queuedRunes == 0
}

// State returns a snapshot for status displays and debugging.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Emitted:  s.emittedLen,
		Queued:   s.queuedRunes,
		Velocity: s.velocity,
		Carry:    s.carry,
		Tail:     s.tail,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
