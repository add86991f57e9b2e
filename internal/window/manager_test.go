package window

import (
	"math"
	"strings"
	"testing"
)

// fixedSegmenter splits on "|" and uses the block length as its height.
type fixedSegmenter struct{}

func (fixedSegmenter) Split(output string) []string {
	if output == "" {
		return nil
	}
	parts := strings.SplitAfter(output, "|")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func (fixedSegmenter) Estimate(block string) float64 {
	return float64(len(block))
}

func newTestManager(buffer int, output string) *Manager {
	m := New(fixedSegmenter{}, Config{ViewportBuffer: buffer})
	m.SetContent(output)
	return m
}

// ten blocks of height 10 each
var tenBlocks = strings.Repeat("123456789|", 10)

func checkGeometry(t *testing.T, res Result) {
	t.Helper()
	sum := res.PaddingTop + res.PaddingBottom
	for _, b := range res.Blocks {
		sum += b.Height
	}
	if sum != res.TotalHeight {
		t.Errorf("padding + heights = %v, want total %v", sum, res.TotalHeight)
	}
	top := res.PaddingTop
	for _, b := range res.Blocks {
		if b.Top != top {
			t.Errorf("block %d Top = %v, want %v", b.Index, b.Top, top)
		}
		top += b.Height
	}
}

func TestManager_VisibleBlocks(t *testing.T) {
	tests := []struct {
		name       string
		buffer     int
		offset     float64
		viewport   float64
		start, end int
	}{
		{"top no buffer", 0, 0, 25, 0, 2},
		{"middle no buffer", 0, 35, 20, 3, 5},
		{"middle with buffer", 2, 35, 20, 1, 7},
		{"buffer clamps at edges", 6, 0, 10, 0, 6},
		{"bottom", 0, 90, 10, 8, 9},
		{"viewport larger than doc", 1, 0, 500, 0, 9},
		{"negative offset", 0, -50, 15, 0, 1},
		{"past the end", 0, 1000, 20, 7, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(tt.buffer, tenBlocks)
			res := m.VisibleBlocks(tt.offset, tt.viewport)
			if res.Start != tt.start || res.End != tt.end {
				t.Errorf("range = [%d, %d], want [%d, %d]", res.Start, res.End, tt.start, tt.end)
			}
			if len(res.Blocks) != tt.end-tt.start+1 {
				t.Errorf("len(Blocks) = %d, want %d", len(res.Blocks), tt.end-tt.start+1)
			}
			checkGeometry(t, res)
		})
	}
}

func TestManager_Empty(t *testing.T) {
	m := New(fixedSegmenter{}, DefaultConfig())
	res := m.VisibleBlocks(0, 100)
	if len(res.Blocks) != 0 || res.TotalHeight != 0 {
		t.Errorf("VisibleBlocks on empty = %+v", res)
	}
	if m.UpdateBlockHeight(0, 10) {
		t.Error("UpdateBlockHeight on empty = true, want false")
	}
}

func TestManager_UpdateBlockHeight(t *testing.T) {
	m := newTestManager(0, tenBlocks)

	tests := []struct {
		name   string
		index  int
		height float64
		want   bool
	}{
		{"valid", 3, 25, true},
		{"unchanged", 3, 25, false},
		{"negative index", -1, 10, false},
		{"index out of range", 10, 10, false},
		{"zero", 2, 0, false},
		{"negative", 2, -5, false},
		{"NaN", 2, math.NaN(), false},
		{"infinite", 2, math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := m.UpdateBlockHeight(tt.index, tt.height); got != tt.want {
			t.Errorf("%s: UpdateBlockHeight(%d, %v) = %v, want %v", tt.name, tt.index, tt.height, got, tt.want)
		}
	}

	if got := m.TotalHeight(); got != 115 {
		t.Errorf("TotalHeight() = %v, want 115", got)
	}
	res := m.VisibleBlocks(0, 1000)
	checkGeometry(t, res)
	if !res.Blocks[3].Measured || res.Blocks[2].Measured {
		t.Error("Measured flag not tracking updates")
	}
}

func TestManager_MeasuredHeightsSurviveUnchangedBlocks(t *testing.T) {
	m := newTestManager(0, "aaaa|bbbb|cc")
	m.UpdateBlockHeight(0, 40)
	m.UpdateBlockHeight(2, 50)

	// streaming appends to the last block only
	m.SetContent("aaaa|bbbb|ccdd")

	if got := m.Height(0); got != 40 {
		t.Errorf("Height(0) = %v, want measured 40", got)
	}
	if got := m.Height(1); got != 5 {
		t.Errorf("Height(1) = %v, want estimate 5", got)
	}
	if got := m.Height(2); got != 4 {
		t.Errorf("Height(2) = %v, want fresh estimate 4 after content change", got)
	}
	if got := m.TotalHeight(); got != 49 {
		t.Errorf("TotalHeight() = %v, want 49", got)
	}
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(0, tenBlocks)
	m.UpdateBlockHeight(0, 99)
	m.Clear()

	if m.BlockCount() != 0 || m.TotalHeight() != 0 {
		t.Errorf("after Clear: count %d total %v", m.BlockCount(), m.TotalHeight())
	}
	m.SetContent(tenBlocks)
	if got := m.Height(0); got != 10 {
		t.Errorf("Height(0) after Clear = %v, want estimate 10", got)
	}
}

func TestManager_FractionalHeightsKeepGeometry(t *testing.T) {
	m := newTestManager(2, strings.Repeat("abcdefg|", 20))
	heights := []float64{23.7, 101.3, 72.45, 0.1, 17.123, 999.999, 3.3333}

	for i := 0; i < 200; i++ {
		index := (i * 7) % 20
		m.UpdateBlockHeight(index, heights[i%len(heights)])

		offset := float64(i%13) * 41.9
		res := m.VisibleBlocks(offset, 150.7)
		checkGeometry(t, res)

		sum := 0.0
		for j := m.BlockCount() - 1; j >= 0; j-- {
			sum += m.Height(j)
		}
		if sum != m.TotalHeight() {
			t.Fatalf("update %d: sum of heights = %v, TotalHeight() = %v", i, sum, m.TotalHeight())
		}
		if res.TotalHeight != m.TotalHeight() {
			t.Fatalf("update %d: Result.TotalHeight = %v, want %v", i, res.TotalHeight, m.TotalHeight())
		}
	}
}

func TestManager_HeightsAreQuantized(t *testing.T) {
	m := newTestManager(0, tenBlocks)
	if !m.UpdateBlockHeight(0, 23.7) {
		t.Fatal("UpdateBlockHeight(0, 23.7) = false, want true")
	}
	if got := m.Height(0); math.Abs(got-23.7) > heightQuantum {
		t.Errorf("Height(0) = %v, want within %v of 23.7", got, heightQuantum)
	}
	// rounds to the same stored value
	if m.UpdateBlockHeight(0, 23.7+heightQuantum/8) {
		t.Error("UpdateBlockHeight with a sub-quantum change = true, want false")
	}
	// tiny positive heights keep a minimal size
	m.UpdateBlockHeight(1, 1e-9)
	if got := m.Height(1); got != heightQuantum {
		t.Errorf("Height(1) = %v, want %v", got, heightQuantum)
	}
}
