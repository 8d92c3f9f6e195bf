// Package squant implements scalar quantization as a preprocessing stage for
// approximate similarity search and other large-scale vector workloads.
//
// A ScalarQuantizer learns a single global (min, max) range from a training
// dataset, optionally trimming a configurable fraction of extreme values
// from each tail, and derives a linear mapping from the floating-point
// domain onto the full range of a narrow signed integer type:
//
//	q(x)  = clamp(round((x - min) * scale) + QuantMin, QuantMin, QuantMax)
//	x'(y) = (y - QuantMin) / scale + min
//
// The inverse transform is explicitly lossy: reconstruction error is bounded
// by half the quantization step (1/scale) for inputs inside [min, max], plus
// whatever was lost to clipping for inputs outside it. Exact recovery holds
// only for values that sit exactly on lattice points of the quantized grid.
//
// # Usage
//
//	rc := resource.NewHostContext()
//	sq := squant.New[float32, int8]()
//	if err := sq.Train(ctx, rc, squant.DefaultParams(), dataset); err != nil { ... }
//	quantized, err := sq.Transform(ctx, rc, dataset)
//
// Training is idempotent per instance: a second Train call is a no-op. A
// trained quantizer is safe for concurrent read-only use; training must not
// race with transforms on the same instance (single-writer caller contract,
// no internal locking).
//
// For device-resident datasets, operations are issued on the context's
// stream and complete asynchronously; call rc.Sync before reading outputs.
package squant
