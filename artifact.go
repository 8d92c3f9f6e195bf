package squant

import (
	"errors"
	"fmt"
)

// EnvelopeFormat identifies the scalar quantizer artifact layout.
const EnvelopeFormat = "squant/scalar/v1"

// StateEnvelope is the portable, codec-agnostic form of a trained quantizer,
// suitable for JSON persistence through the codec and store packages. The
// bounds are carried as float64, which represents every supported element
// precision exactly.
type StateEnvelope struct {
	Format    string  `json:"format"`
	ElemType  string  `json:"elem_type"`
	QuantType string  `json:"quant_type"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Scale     float64 `json:"scale"`
}

// ErrEnvelopeMismatch is returned when restoring an envelope whose format or
// type parameters do not match the receiving quantizer.
var ErrEnvelopeMismatch = errors.New("state envelope mismatch")

// Envelope exports the trained state. Returns ErrNotTrained on an untrained
// instance.
func (sq *ScalarQuantizer[T, Q]) Envelope() (StateEnvelope, error) {
	if !sq.trained {
		return StateEnvelope{}, ErrNotTrained
	}
	return StateEnvelope{
		Format:    EnvelopeFormat,
		ElemType:  elemTypeName[T](),
		QuantType: quantTypeName[Q](),
		Min:       elemFloat64(sq.min),
		Max:       elemFloat64(sq.max),
		Scale:     sq.scale,
	}, nil
}

// Restore loads trained state from an envelope, validating that it was
// produced by a quantizer of the same element and quantized types. Like
// Train, it is a no-op on an already trained instance.
func (sq *ScalarQuantizer[T, Q]) Restore(env StateEnvelope) error {
	if env.Format != EnvelopeFormat {
		return fmt.Errorf("%w: format %q", ErrEnvelopeMismatch, env.Format)
	}
	if env.ElemType != elemTypeName[T]() || env.QuantType != quantTypeName[Q]() {
		return fmt.Errorf("%w: %s->%s envelope for %s->%s quantizer",
			ErrEnvelopeMismatch, env.ElemType, env.QuantType, elemTypeName[T](), quantTypeName[Q]())
	}
	if sq.trained {
		return nil
	}
	sq.min = elemFromFloat64[T](env.Min)
	sq.max = elemFromFloat64[T](env.Max)
	sq.scale = env.Scale
	sq.trained = true
	return nil
}
