package squant

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/squant/matrix"
	"github.com/hupe1980/squant/resource"
)

// Transform applies the forward quantization mapping to the dataset and
// returns a freshly allocated quantized view in the context's memory domain.
//
// For each element x:
//
//	q(x) = clamp(round((x - min) * scale) + QuantMin, QuantMin, QuantMax)
//
// Rounding is round-half-away-from-zero (math.Round). The transform is total:
// values outside the trained range clip to the nearest bound, NaN and -Inf
// map to QuantMin and +Inf maps to QuantMax; non-finite inputs never reach
// the integer output.
//
// On a device context the kernel is issued asynchronously; the returned view
// must not be read before rc.Sync.
//
// The output buffer is reserved against the context's controller. Callers
// operating under a memory limit release it with Controller().ReleaseMemory
// once done with the view.
func (sq *ScalarQuantizer[T, Q]) Transform(ctx context.Context, rc *resource.Context, dataset matrix.View[T]) (matrix.View[Q], error) {
	if err := sq.checkForward(rc, dataset); err != nil {
		return matrix.View[Q]{}, err
	}
	out, err := resource.AllocMatrix[Q](rc, dataset.Rows(), dataset.Cols())
	if err != nil {
		return matrix.View[Q]{}, err
	}
	err = sq.issueForward(ctx, rc, dataset, out, nil)
	return out, err
}

// TransformInto is Transform writing into a caller-provided buffer of
// matching shape and domain.
func (sq *ScalarQuantizer[T, Q]) TransformInto(ctx context.Context, rc *resource.Context, dataset matrix.View[T], out matrix.View[Q]) error {
	if err := sq.checkForward(rc, dataset); err != nil {
		return err
	}
	if err := checkOutput(rc, dataset, out); err != nil {
		return err
	}
	return sq.issueForward(ctx, rc, dataset, out, nil)
}

// TransformWithStats is Transform collecting clip diagnostics: how many
// elements clipped at each bound, how many were non-finite, and the flattened
// positions touched. Stats are complete once the operation has finished (for
// device contexts, after rc.Sync).
func (sq *ScalarQuantizer[T, Q]) TransformWithStats(ctx context.Context, rc *resource.Context, dataset matrix.View[T]) (matrix.View[Q], *TransformStats, error) {
	if err := sq.checkForward(rc, dataset); err != nil {
		return matrix.View[Q]{}, nil, err
	}
	out, err := resource.AllocMatrix[Q](rc, dataset.Rows(), dataset.Cols())
	if err != nil {
		return matrix.View[Q]{}, nil, err
	}
	stats := newTransformStats()
	err = sq.issueForward(ctx, rc, dataset, out, stats)
	return out, stats, err
}

// InverseTransform reconstructs an approximate floating-point dataset from
// quantized input:
//
//	x'(y) = (y - QuantMin) / scale + min
//
// The reconstruction is lossy; see the package documentation for the error
// bound. Like Transform, the returned view's buffer stays reserved against
// the context's controller until released.
func (sq *ScalarQuantizer[T, Q]) InverseTransform(ctx context.Context, rc *resource.Context, quantized matrix.View[Q]) (matrix.View[T], error) {
	if err := sq.checkInverse(rc, quantized); err != nil {
		return matrix.View[T]{}, err
	}
	out, err := resource.AllocMatrix[T](rc, quantized.Rows(), quantized.Cols())
	if err != nil {
		return matrix.View[T]{}, err
	}
	err = sq.issueInverse(ctx, rc, quantized, out)
	return out, err
}

// InverseTransformInto is InverseTransform writing into a caller-provided
// buffer of matching shape and domain.
func (sq *ScalarQuantizer[T, Q]) InverseTransformInto(ctx context.Context, rc *resource.Context, quantized matrix.View[Q], out matrix.View[T]) error {
	if err := sq.checkInverse(rc, quantized); err != nil {
		return err
	}
	if err := checkOutput(rc, quantized, out); err != nil {
		return err
	}
	return sq.issueInverse(ctx, rc, quantized, out)
}

// All preconditions are checked synchronously, before any asynchronous work
// is issued.

func (sq *ScalarQuantizer[T, Q]) checkForward(rc *resource.Context, dataset matrix.View[T]) error {
	if !sq.trained {
		return ErrNotTrained
	}
	if dataset.IsEmpty() {
		return ErrEmptyInput
	}
	if dataset.Domain() != rc.Domain() {
		return &ErrDomainMismatch{Want: rc.Domain(), Got: dataset.Domain()}
	}
	return nil
}

func (sq *ScalarQuantizer[T, Q]) checkInverse(rc *resource.Context, quantized matrix.View[Q]) error {
	if !sq.trained {
		return ErrNotTrained
	}
	if quantized.IsEmpty() {
		return ErrEmptyInput
	}
	if quantized.Domain() != rc.Domain() {
		return &ErrDomainMismatch{Want: rc.Domain(), Got: quantized.Domain()}
	}
	return nil
}

func checkOutput[A, B matrix.Scalar](rc *resource.Context, in matrix.View[A], out matrix.View[B]) error {
	if !matrix.SameShape(in, out) {
		return &ErrShapeMismatch{
			WantRows: in.Rows(), WantCols: in.Cols(),
			GotRows: out.Rows(), GotCols: out.Cols(),
		}
	}
	if out.Domain() != rc.Domain() {
		return &ErrDomainMismatch{Want: rc.Domain(), Got: out.Domain()}
	}
	return nil
}

func (sq *ScalarQuantizer[T, Q]) issueForward(ctx context.Context, rc *resource.Context, dataset matrix.View[T], out matrix.View[Q], stats *TransformStats) error {
	run := func() error {
		sq.forwardKernel(rc.Controller().KernelWorkers(), dataset, out, stats)
		return nil
	}
	var err error
	if rc.Domain() == matrix.Device {
		err = rc.Stream().Submit(run)
	} else {
		err = run()
	}
	sq.logger.LogTransform(ctx, "transform", dataset.Rows(), dataset.Cols(), err)
	return err
}

func (sq *ScalarQuantizer[T, Q]) issueInverse(ctx context.Context, rc *resource.Context, quantized matrix.View[Q], out matrix.View[T]) error {
	run := func() error {
		sq.inverseKernel(rc.Controller().KernelWorkers(), quantized, out)
		return nil
	}
	var err error
	if rc.Domain() == matrix.Device {
		err = rc.Stream().Submit(run)
	} else {
		err = run()
	}
	sq.logger.LogTransform(ctx, "inverse_transform", quantized.Rows(), quantized.Cols(), err)
	return err
}

// forwardKernel quantizes element-wise. Each element is independent, so rows
// are fanned out across the controller's kernel workers.
func (sq *ScalarQuantizer[T, Q]) forwardKernel(workers int, ds matrix.View[T], out matrix.View[Q], stats *TransformStats) {
	qlo, qhi := quantLimits[Q]()
	fqlo, fqhi := float64(qlo), float64(qhi)
	minF := elemFloat64(sq.min)
	scale := sq.scale
	cols := ds.Cols()

	parallelRows(workers, ds.Rows(), func(r0, r1 int64) {
		var local clipCounters
		for r := r0; r < r1; r++ {
			src := ds.Row(r)
			dst := out.Row(r)
			for c := int64(0); c < cols; c++ {
				x := elemFloat64(src[c])
				var v int64
				switch {
				case math.IsNaN(x) || math.IsInf(x, -1):
					v = qlo
					local.nonFinite(r*cols + c)
				case math.IsInf(x, 1):
					v = qhi
					local.nonFinite(r*cols + c)
				default:
					f := math.Round((x-minF)*scale) + fqlo
					switch {
					case f <= fqlo:
						v = qlo
						if f < fqlo {
							local.clipLow(r*cols + c)
						}
					case f >= fqhi:
						v = qhi
						if f > fqhi {
							local.clipHigh(r*cols + c)
						}
					default:
						v = int64(f)
					}
				}
				dst[c] = Q(v)
			}
		}
		stats.merge(&local)
	})
}

func (sq *ScalarQuantizer[T, Q]) inverseKernel(workers int, qv matrix.View[Q], out matrix.View[T]) {
	qlo, _ := quantLimits[Q]()
	fqlo := float64(qlo)
	minF := elemFloat64(sq.min)
	scale := sq.scale
	cols := qv.Cols()

	parallelRows(workers, qv.Rows(), func(r0, r1 int64) {
		for r := r0; r < r1; r++ {
			src := qv.Row(r)
			dst := out.Row(r)
			for c := int64(0); c < cols; c++ {
				dst[c] = elemFromFloat64[T]((float64(src[c])-fqlo)/scale + minF)
			}
		}
	})
}

func parallelRows(workers int, rows int64, fn func(lo, hi int64)) {
	if int64(workers) > rows {
		workers = int(rows)
	}
	if workers <= 1 {
		fn(0, rows)
		return
	}
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
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
