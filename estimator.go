package squant

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/squant/matrix"
	"github.com/hupe1980/squant/resource"
)

// estimateRange computes the effective value range of the flattened dataset:
// the true minimum and maximum for q == 1, or the order statistics at rank
// floor((1-q)/2 * count) from each end for q < 1, where count is the number
// of finite elements. The quantile is taken over the whole dataset
// population, not per column, matching the single global (min, max) pair the
// quantizer stores. Both paths skip non-finite values.
//
// Bounds are returned in the dataset's element type exactly; no upcast.
func estimateRange[T Element](rc *resource.Context, q float64, ds matrix.View[T]) (minV, maxV T, err error) {
	if ds.IsEmpty() {
		return minV, maxV, ErrEmptyInput
	}
	if q == 1 {
		// Min/max reductions are order-independent, so this path is both
		// cheaper than selection and exactly reproducible across backends.
		minV, maxV = minMaxReduce(rc.Controller().KernelWorkers(), ds)
		return minV, maxV, nil
	}
	return trimmedRange(rc, q, ds)
}

// minMaxReduce finds the smallest and largest finite elements. Non-finite
// values never become bounds; a dataset with no finite values degenerates to
// its first element on both ends.
func minMaxReduce[T Element](workers int, ds matrix.View[T]) (T, T) {
	type extrema struct {
		min, max   T
		minF, maxF float64
		ok         bool
	}

	rows := ds.Rows()
	cols := ds.Cols()
	if int64(workers) > rows {
		workers = int(rows)
	}
	if workers < 1 {
		workers = 1
	}

	parts := make([]extrema, workers)
	per := (rows + int64(workers) - 1) / int64(workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := int64(w) * per
		hi := lo + per
		if hi > rows {
			hi = rows
		}
		if lo >= hi {
			break
		}
		part := &parts[w]
		g.Go(func() error {
			for r := lo; r < hi; r++ {
				row := ds.Row(r)
				for c := int64(0); c < cols; c++ {
					f := elemFloat64(row[c])
					if math.IsNaN(f) || math.IsInf(f, 0) {
						continue
					}
					if !part.ok {
						part.min, part.max = row[c], row[c]
						part.minF, part.maxF = f, f
						part.ok = true
						continue
					}
					if f < part.minF {
						part.min, part.minF = row[c], f
					}
					if f > part.maxF {
						part.max, part.maxF = row[c], f
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	var out extrema
	for _, p := range parts {
		if !p.ok {
			continue
		}
		if !out.ok {
			out = p
			continue
		}
		if p.minF < out.minF {
			out.min, out.minF = p.min, p.minF
		}
		if p.maxF > out.maxF {
			out.max, out.maxF = p.max, p.maxF
		}
	}
	if !out.ok {
		first := ds.At(0, 0)
		return first, first
	}
	return out.min, out.max
}

// trimmedRange selects the trimmed bounds via order statistics on a flat
// scratch copy of the dataset, allocated through the execution context.
// Non-finite values are excluded from the population before ranking, the
// same policy as the min/max path: a bound must never be NaN or infinite.
// A dataset with no finite values degenerates to its first element.
func trimmedRange[T Element](rc *resource.Context, q float64, ds matrix.View[T]) (minV, maxV T, err error) {
	total := ds.Len()
	scratch, err := resource.Alloc[T](rc, total)
	if err != nil {
		return minV, maxV, err
	}
	defer rc.Controller().ReleaseMemory(total * matrix.SizeOf[T]())

	rows, cols := ds.Rows(), ds.Cols()
	count := int64(0)
	for r := int64(0); r < rows; r++ {
		row := ds.Row(r)
		for c := int64(0); c < cols; c++ {
			f := elemFloat64(row[c])
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			scratch[count] = row[c]
			count++
		}
	}
	if count == 0 {
		first := ds.At(0, 0)
		return first, first, nil
	}
	finite := scratch[:count]

	cut := int64(float64(count) * (1 - q) / 2)
	loIdx := cut
	hiIdx := count - 1 - cut

	selectKth(finite, loIdx)
	minV = finite[loIdx]
	selectKth(finite, hiIdx)
	maxV = finite[hiIdx]
	return minV, maxV, nil
}

// selectKth partially orders s so that s[k] holds its k-th smallest element
// (quickselect with a median-of-three pivot).
func selectKth[T Element](s []T, k int64) {
	lo, hi := int64(0), int64(len(s)-1)
	for lo < hi {
		p := partition(s, lo, hi)
		switch {
		case k < p:
			hi = p - 1
		case k > p:
			lo = p + 1
		default:
			return
		}
	}
}

func partition[T Element](s []T, lo, hi int64) int64 {
	mid := lo + (hi-lo)/2
	// Median-of-three pivot dodges the sorted-input worst case.
	if elemLess(s[mid], s[lo]) {
		s[mid], s[lo] = s[lo], s[mid]
	}
	if elemLess(s[hi], s[lo]) {
		s[hi], s[lo] = s[lo], s[hi]
	}
	if elemLess(s[hi], s[mid]) {
		s[hi], s[mid] = s[mid], s[hi]
	}
	pivot := s[mid]
	s[mid], s[hi] = s[hi], s[mid]

	store := lo
	for i := lo; i < hi; i++ {
		if elemLess(s[i], pivot) {
			s[i], s[store] = s[store], s[i]
			store++
		}
	}
	s[store], s[hi] = s[hi], s[store]
	return store
}
