package squant

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/hupe1980/squant/matrix"
	"github.com/hupe1980/squant/resource"
)

// ScalarQuantizer owns a trained (min, max) pair in the source element type T
// and the derived scale mapping onto the quantized integer type Q.
//
// An instance starts untrained; Train transitions it to trained exactly once
// and is a silent no-op afterwards. Callers needing retraining construct a
// fresh instance. A trained instance is safe for concurrent read-only use;
// training must not race with transforms on the same instance.
type ScalarQuantizer[T Element, Q Quantized] struct {
	min     T
	max     T
	scale   float64
	trained bool

	logger *Logger
}

// New creates an untrained scalar quantizer.
func New[T Element, Q Quantized](opts ...Option) *ScalarQuantizer[T, Q] {
	o := options{logger: NoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &ScalarQuantizer[T, Q]{logger: o.logger}
}

// Train estimates the quantization range from the dataset and derives the
// scale. The call validates params and dataset eagerly, before any work is
// issued, and blocks until the state is computed even for device-resident
// datasets (the reduction is issued on the context's stream and synced).
//
// Training is idempotent per instance: if the quantizer is already trained,
// the call returns nil without touching the stored state, regardless of the
// params or dataset passed.
func (sq *ScalarQuantizer[T, Q]) Train(ctx context.Context, rc *resource.Context, params Params, dataset matrix.View[T]) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if dataset.IsEmpty() {
		return ErrEmptyInput
	}
	if dataset.Domain() != rc.Domain() {
		return &ErrDomainMismatch{Want: rc.Domain(), Got: dataset.Domain()}
	}
	if sq.trained {
		sq.logger.DebugContext(ctx, "already trained, ignoring", "quantile", params.Quantile)
		return nil
	}

	start := time.Now()
	run := func() error {
		minV, maxV, err := estimateRange(rc, params.Quantile, dataset)
		if err != nil {
			return err
		}
		sq.min, sq.max = minV, maxV
		sq.scale = deriveScale[T, Q](minV, maxV)
		sq.trained = true
		return nil
	}

	var err error
	if rc.Domain() == matrix.Device {
		if err = rc.Stream().Submit(run); err == nil {
			err = rc.Sync(ctx)
		}
	} else {
		err = run()
	}
	sq.logger.LogTrain(ctx, dataset.Rows(), dataset.Cols(), params.Quantile, time.Since(start), err)
	return err
}

// deriveScale maps the trained range onto the full span of Q. The span is
// computed in int64 so QuantMax - QuantMin cannot overflow; a degenerate
// range (max == min) takes scale 1.0 instead of dividing by zero.
func deriveScale[T Element, Q Quantized](minV, maxV T) float64 {
	qlo, qhi := quantLimits[Q]()
	minF, maxF := elemFloat64(minV), elemFloat64(maxV)
	if maxF > minF {
		return float64(qhi-qlo) / (maxF - minF)
	}
	return 1.0
}

// Trained reports whether Train has completed successfully.
func (sq *ScalarQuantizer[T, Q]) Trained() bool { return sq.trained }

// Min returns the trained lower bound in the source element type.
func (sq *ScalarQuantizer[T, Q]) Min() T { return sq.min }

// Max returns the trained upper bound in the source element type.
func (sq *ScalarQuantizer[T, Q]) Max() T { return sq.max }

// Scale returns the derived scale factor.
func (sq *ScalarQuantizer[T, Q]) Scale() float64 { return sq.scale }

// Step returns the quantization step 1/scale, the bound on reconstruction
// error for in-range inputs.
func (sq *ScalarQuantizer[T, Q]) Step() float64 { return 1 / sq.scale }

const (
	stateBinaryLen     = 26
	stateBinaryVersion = 1
)

// MarshalBinary implements encoding.BinaryMarshaler.
// Format (little-endian): [version:u8][trained:u8][min:f64][max:f64][scale:f64]
func (sq *ScalarQuantizer[T, Q]) MarshalBinary() ([]byte, error) {
	b := make([]byte, stateBinaryLen)
	b[0] = stateBinaryVersion
	if sq.trained {
		b[1] = 1
	}
	binary.LittleEndian.PutUint64(b[2:10], math.Float64bits(elemFloat64(sq.min)))
	binary.LittleEndian.PutUint64(b[10:18], math.Float64bits(elemFloat64(sq.max)))
	binary.LittleEndian.PutUint64(b[18:26], math.Float64bits(sq.scale))
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sq *ScalarQuantizer[T, Q]) UnmarshalBinary(data []byte) error {
	if len(data) != stateBinaryLen {
		return errors.New("invalid scalar quantizer binary length")
	}
	if data[0] != stateBinaryVersion {
		return errors.New("unsupported scalar quantizer binary version")
	}
	sq.min = elemFromFloat64[T](math.Float64frombits(binary.LittleEndian.Uint64(data[2:10])))
	sq.max = elemFromFloat64[T](math.Float64frombits(binary.LittleEndian.Uint64(data[10:18])))
	sq.scale = math.Float64frombits(binary.LittleEndian.Uint64(data[18:26]))
	sq.trained = data[1] == 1
	return nil
}
