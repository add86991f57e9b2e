// Package window splits large rendered output into blocks and computes
// which of them intersect a viewport, so callers only materialize a
// small subset while keeping total scroll geometry exact.
package window

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// Defaults for Config.
const (
	DefaultMinBlockSize          = 500
	DefaultLargeElementThreshold = 1000
	DefaultViewportBuffer        = 6
)

// Config controls segmentation and the visible-range buffer.
type Config struct {
	// MinBlockSize is the aggregate size small neighbours are coalesced to.
	MinBlockSize int `mapstructure:"min_block_size"`
	// LargeElementThreshold is the size above which an element is its own block.
	LargeElementThreshold int `mapstructure:"large_element_threshold"`
	// ViewportBuffer is the number of extra blocks kept on each side.
	ViewportBuffer int `mapstructure:"viewport_buffer"`
}

// DefaultConfig returns the default window configuration.
func DefaultConfig() Config {
	return Config{
		MinBlockSize:          DefaultMinBlockSize,
		LargeElementThreshold: DefaultLargeElementThreshold,
		ViewportBuffer:        DefaultViewportBuffer,
	}
}

func (c Config) normalize() Config {
	if c.MinBlockSize <= 0 {
		c.MinBlockSize = DefaultMinBlockSize
	}
	if c.LargeElementThreshold <= 0 {
		c.LargeElementThreshold = DefaultLargeElementThreshold
	}
	if c.ViewportBuffer < 0 {
		c.ViewportBuffer = 0
	}
	return c
}

// Segmenter partitions rendered output into blocks and estimates their heights.
// Concatenating the blocks returned by Split must reproduce the input.
type Segmenter interface {
	Split(output string) []string
	Estimate(block string) float64
}

// Block is one windowed unit of output.
type Block struct {
	Index    int
	Content  string
	Height   float64
	Top      float64
	Measured bool
}

// Result is the outcome of a visible-range query.
// PaddingTop + sum(Blocks heights) + PaddingBottom == TotalHeight.
type Result struct {
	Blocks        []Block
	Start, End    int // inclusive block index range; End < Start when empty
	PaddingTop    float64
	PaddingBottom float64
	TotalHeight   float64
}

type measurement struct {
	height float64
	hash   uint64
}

// Manager holds the current block set and their heights.
// It is not safe for concurrent use; callers drive it from one loop.
type Manager struct {
	seg Segmenter
	cfg Config

	blocks   []string
	heights  []float64
	measured map[int]measurement
	total    float64
}

// heightQuantum is the resolution heights are stored at. Multiples of a
// power of two add without rounding error, so the running total and every
// padding sum stay exactly equal however they are grouped.
const heightQuantum = 1.0 / 1024

func quantize(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return 0
	}
	return math.Max(heightQuantum, math.Round(h/heightQuantum)*heightQuantum)
}

// New creates a manager using seg for segmentation.
func New(seg Segmenter, cfg Config) *Manager {
	return &Manager{
		seg:      seg,
		cfg:      cfg.normalize(),
		measured: make(map[int]measurement),
	}
}

// SetContent replaces the output. Measured heights are reused for blocks
// whose index and content are unchanged; all others are estimated.
func (m *Manager) SetContent(output string) {
	m.blocks = m.seg.Split(output)
	m.heights = make([]float64, len(m.blocks))
	m.total = 0

	for i, b := range m.blocks {
		h := 0.0
		if ms, ok := m.measured[i]; ok && ms.hash == xxhash.Sum64String(b) {
			h = ms.height
		} else {
			delete(m.measured, i)
			h = quantize(m.seg.Estimate(b))
		}
		m.heights[i] = h
		m.total += h
	}
	for i := range m.measured {
		if i >= len(m.blocks) {
			delete(m.measured, i)
		}
	}
}

// UpdateBlockHeight records a measured height for block index, rounded to
// the nearest heightQuantum. It returns false when the index is out of range,
// the height is not a positive finite number, or the height is unchanged.
func (m *Manager) UpdateBlockHeight(index int, height float64) bool {
	if index < 0 || index >= len(m.heights) {
		return false
	}
	if math.IsNaN(height) || math.IsInf(height, 0) || height <= 0 {
		return false
	}
	height = quantize(height)
	old := m.heights[index]
	if old == height {
		return false
	}
	m.heights[index] = height
	m.measured[index] = measurement{height: height, hash: xxhash.Sum64String(m.blocks[index])}
	m.total += height - old
	return true
}

// VisibleBlocks returns the blocks intersecting [offset, offset+viewport],
// widened by the configured buffer. Offsets before the start clamp to zero
// and offsets past the end clamp to the last viewport.
func (m *Manager) VisibleBlocks(offset, viewport float64) Result {
	n := len(m.heights)
	if n == 0 {
		return Result{Start: 0, End: -1}
	}
	if math.IsNaN(viewport) || viewport < 0 {
		viewport = 0
	}
	if math.IsNaN(offset) || offset < 0 {
		offset = 0
	}
	if offset > m.total {
		offset = math.Max(0, m.total-viewport)
	}
	buf := m.cfg.ViewportBuffer

	start := n - 1
	acc := 0.0
	for i, h := range m.heights {
		if acc+h >= offset {
			start = i
			break
		}
		acc += h
	}
	start = max(0, start-buf)

	end := n - 1
	bottom := offset + viewport
	acc = 0
	for i, h := range m.heights {
		acc += h
		if acc >= bottom {
			end = min(n-1, i+buf)
			break
		}
	}

	res := Result{Start: start, End: end, TotalHeight: m.total}
	for i := 0; i < start; i++ {
		res.PaddingTop += m.heights[i]
	}
	for i := end + 1; i < n; i++ {
		res.PaddingBottom += m.heights[i]
	}

	top := res.PaddingTop
	res.Blocks = make([]Block, 0, end-start+1)
	for i := start; i <= end; i++ {
		_, measured := m.measured[i]
		res.Blocks = append(res.Blocks, Block{
			Index:    i,
			Content:  m.blocks[i],
			Height:   m.heights[i],
			Top:      top,
			Measured: measured,
		})
		top += m.heights[i]
	}
	return res
}

// Clear drops all content and measurements.
func (m *Manager) Clear() {
	m.blocks = nil
	m.heights = nil
	m.total = 0
	clear(m.measured)
}

// Blocks returns every block (for non-virtualized rendering).
func (m *Manager) Blocks() []string {
	return m.blocks
}

// BlockCount returns the number of blocks.
func (m *Manager) BlockCount() int {
	return len(m.blocks)
}

// Height returns the current height of block index, or 0 when out of range.
func (m *Manager) Height(index int) float64 {
	if index < 0 || index >= len(m.heights) {
		return 0
	}
	return m.heights[index]
}

// TotalHeight returns the sum of all block heights.
func (m *Manager) TotalHeight() float64 {
	return m.total
}
