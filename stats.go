package squant

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// TransformStats collects clip diagnostics for a forward transform: counts
// of elements clamped at each bound, non-finite inputs, and the flattened
// (row-major) positions affected. Useful for spotting quantization drift when
// transforming datasets other than the training set.
//
// Stats are written by the kernel while the operation runs; read them only
// after the operation has completed (after rc.Sync on device contexts).
type TransformStats struct {
	mu          sync.Mutex
	clippedLow  uint64
	clippedHigh uint64
	nonFinite   uint64
	positions   *roaring64.Bitmap
}

func newTransformStats() *TransformStats {
	return &TransformStats{positions: roaring64.New()}
}

// ClippedLow returns the number of finite elements clamped to QuantMin.
func (s *TransformStats) ClippedLow() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clippedLow
}

// ClippedHigh returns the number of finite elements clamped to QuantMax.
func (s *TransformStats) ClippedHigh() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clippedHigh
}

// NonFinite returns the number of NaN or infinite inputs encountered.
func (s *TransformStats) NonFinite() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonFinite
}

// Clipped returns the total number of elements that did not map cleanly:
// clipped at either bound or non-finite.
func (s *TransformStats) Clipped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clippedLow + s.clippedHigh + s.nonFinite
}

// Positions returns the bitmap of affected flattened element positions
// (row*cols + col). The caller must not mutate it while a transform into
// these stats is still running.
func (s *TransformStats) Positions() *roaring64.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions
}

// clipCounters accumulates per-chunk counts so kernel goroutines touch the
// shared stats only once per chunk.
type clipCounters struct {
	low, high, nonfinite uint64
	positions            []uint64
}

func (c *clipCounters) clipLow(pos int64) {
	c.low++
	c.positions = append(c.positions, uint64(pos))
}

func (c *clipCounters) clipHigh(pos int64) {
	c.high++
	c.positions = append(c.positions, uint64(pos))
}

func (c *clipCounters) nonFinite(pos int64) {
	c.nonfinite++
	c.positions = append(c.positions, uint64(pos))
}

func (s *TransformStats) merge(c *clipCounters) {
	if s == nil || (c.low == 0 && c.high == 0 && c.nonfinite == 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clippedLow += c.low
	s.clippedHigh += c.high
	s.nonFinite += c.nonfinite
	s.positions.AddMany(c.positions)
}
