package squant

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/x448/float16"

	"github.com/hupe1980/squant/matrix"
	"github.com/hupe1980/squant/resource"
)

func hostCtx() *resource.Context {
	return resource.NewHostContext()
}

func mustView(t *testing.T, rows [][]float32) matrix.View[float32] {
	t.Helper()
	v, err := matrix.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	return v
}

func TestScalarQuantizer_Train(t *testing.T) {
	ds := mustView(t, [][]float32{
		{0.0, 1.0},
		{2.0, 100.0},
	})

	sq := New[float32, int8]()
	err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if !sq.Trained() {
		t.Error("Expected trained state")
	}
	if sq.Min() != 0.0 {
		t.Errorf("Expected min=0.0, got %f", sq.Min())
	}
	if sq.Max() != 100.0 {
		t.Errorf("Expected max=100.0, got %f", sq.Max())
	}
	if sq.Scale() != 2.55 {
		t.Errorf("Expected scale=2.55, got %f", sq.Scale())
	}
}

func TestScalarQuantizer_TransformKnownValues(t *testing.T) {
	ds := mustView(t, [][]float32{
		{0.0, 1.0},
		{2.0, 100.0},
	})

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	out, err := sq.Transform(context.Background(), hostCtx(), ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// q(x) = clamp(round((x - 0) * 2.55) - 128, -128, 127)
	want := [][]int8{
		{-128, -125}, // round(0)=0, round(2.55)=3
		{-123, 127},  // round(5.1)=5, round(255)=255
	}
	for r := int64(0); r < out.Rows(); r++ {
		for c := int64(0); c < out.Cols(); c++ {
			if out.At(r, c) != want[r][c] {
				t.Errorf("out[%d][%d] = %d, want %d", r, c, out.At(r, c), want[r][c])
			}
		}
	}
}

func TestScalarQuantizer_InverseTransformKnownValues(t *testing.T) {
	ds := mustView(t, [][]float32{
		{0.0, 1.0},
		{2.0, 100.0},
	})

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	q, err := matrix.FromRows([][]int8{{-123}})
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	rec, err := sq.InverseTransform(context.Background(), hostCtx(), q)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}

	// x'(-123) = (-123 - (-128)) / 2.55 + 0 = 1.9607...
	got := float64(rec.At(0, 0))
	if math.Abs(got-5.0/2.55) > 1e-6 {
		t.Errorf("Expected ~1.9608, got %f", got)
	}
}

func TestScalarQuantizer_RoundTripBound(t *testing.T) {
	rows := make([][]float32, 32)
	for i := range rows {
		row := make([]float32, 16)
		for j := range row {
			row[j] = float32(i*16+j)/10.0 - 20.0
		}
		rows[i] = row
	}
	ds := mustView(t, rows)

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	q, err := sq.Transform(context.Background(), hostCtx(), ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	rec, err := sq.InverseTransform(context.Background(), hostCtx(), q)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}

	// In-range values reconstruct within one quantization step.
	bound := sq.Step()
	for r := int64(0); r < ds.Rows(); r++ {
		for c := int64(0); c < ds.Cols(); c++ {
			diff := math.Abs(float64(ds.At(r, c)) - float64(rec.At(r, c)))
			if diff > bound {
				t.Errorf("Reconstruction error %f at (%d,%d) exceeds step %f", diff, r, c, bound)
			}
		}
	}
}

func TestScalarQuantizer_IdempotentTraining(t *testing.T) {
	ds1 := mustView(t, [][]float32{{0.0, 100.0}})
	ds2 := mustView(t, [][]float32{{-500.0, 500.0}})

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds1); err != nil {
		t.Fatalf("First Train failed: %v", err)
	}
	minBefore, maxBefore, scaleBefore := sq.Min(), sq.Max(), sq.Scale()

	// A second Train is a silent no-op, whatever it is called with.
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 0.5}, ds2); err != nil {
		t.Fatalf("Second Train failed: %v", err)
	}

	if sq.Min() != minBefore || sq.Max() != maxBefore || sq.Scale() != scaleBefore {
		t.Errorf("Retraining changed state: min=%f max=%f scale=%f", sq.Min(), sq.Max(), sq.Scale())
	}
}

func TestScalarQuantizer_DegenerateRange(t *testing.T) {
	ds := mustView(t, [][]float32{
		{42.0, 42.0, 42.0},
		{42.0, 42.0, 42.0},
	})

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if sq.Scale() != 1.0 {
		t.Errorf("Expected scale=1.0 for degenerate range, got %f", sq.Scale())
	}

	q, err := sq.Transform(context.Background(), hostCtx(), ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	rec, err := sq.InverseTransform(context.Background(), hostCtx(), q)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}
	if rec.At(0, 0) != 42.0 {
		t.Errorf("Expected exact reconstruction 42.0, got %f", rec.At(0, 0))
	}
}

func TestScalarQuantizer_QuantileTrimming(t *testing.T) {
	// 100 values 1..100 in one row; q=0.9 trims floor(100*0.05)=5 from each
	// end, leaving bounds at the 6th smallest and 6th largest.
	row := make([]float32, 100)
	for i := range row {
		row[i] = float32(i + 1)
	}
	ds := mustView(t, [][]float32{row})

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 0.9}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if sq.Min() != 6.0 {
		t.Errorf("Expected min=6.0, got %f", sq.Min())
	}
	if sq.Max() != 95.0 {
		t.Errorf("Expected max=95.0, got %f", sq.Max())
	}
}

func TestScalarQuantizer_QuantileMonotonicity(t *testing.T) {
	rows := make([][]float32, 50)
	for i := range rows {
		row := make([]float32, 20)
		for j := range row {
			row[j] = float32(math.Sin(float64(i*20+j)) * 100)
		}
		rows[i] = row
	}
	ds := mustView(t, rows)

	quantiles := []float64{1.0, 0.99, 0.9, 0.5}
	var prevMin, prevMax float32
	for i, q := range quantiles {
		sq := New[float32, int8]()
		if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: q}, ds); err != nil {
			t.Fatalf("Train q=%f failed: %v", q, err)
		}
		if i > 0 {
			if sq.Min() < prevMin {
				t.Errorf("q=%f widened min: %f < %f", q, sq.Min(), prevMin)
			}
			if sq.Max() > prevMax {
				t.Errorf("q=%f widened max: %f > %f", q, sq.Max(), prevMax)
			}
		}
		prevMin, prevMax = sq.Min(), sq.Max()
	}
}

func TestScalarQuantizer_TrimmedTrainingWithNonFinite(t *testing.T) {
	// An infinity in the training set must not become a bound under a
	// trimming quantile: that would collapse the scale to zero and feed NaN
	// into the integer conversion of the forward kernel.
	negInf := float32(math.Inf(-1))
	row := []float32{negInf}
	for i := 0; i < 20; i++ {
		row = append(row, float32(i))
	}
	ds := mustView(t, [][]float32{row})

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), DefaultParams(), ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if sq.Min() != 0.0 {
		t.Errorf("Expected min=0.0, got %f", sq.Min())
	}
	if sq.Max() != 19.0 {
		t.Errorf("Expected max=19.0, got %f", sq.Max())
	}
	if sq.Scale() <= 0 || math.IsInf(sq.Scale(), 0) || math.IsNaN(sq.Scale()) {
		t.Fatalf("Degenerate scale %f", sq.Scale())
	}

	sample := mustView(t, [][]float32{{5.0}})
	out, err := sq.Transform(context.Background(), hostCtx(), sample)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := int8(int64(math.Round(5.0*sq.Scale())) - 128)
	if out.At(0, 0) != want {
		t.Errorf("transform(5.0) = %d, want %d", out.At(0, 0), want)
	}
}

func TestScalarQuantizer_InvalidQuantile(t *testing.T) {
	ds := mustView(t, [][]float32{{1.0, 2.0}})

	for _, q := range []float64{0.0, -0.1, 1.1, math.NaN()} {
		sq := New[float32, int8]()
		err := sq.Train(context.Background(), hostCtx(), Params{Quantile: q}, ds)

		var invalid *ErrInvalidParameter
		if !errors.As(err, &invalid) {
			t.Errorf("q=%f: expected ErrInvalidParameter, got %v", q, err)
			continue
		}
		if sq.Trained() {
			t.Errorf("q=%f: quantizer trained despite invalid params", q)
		}
	}
}

func TestScalarQuantizer_EmptyDataset(t *testing.T) {
	sq := New[float32, int8]()
	err := sq.Train(context.Background(), hostCtx(), DefaultParams(), matrix.View[float32]{})
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
}

func TestScalarQuantizer_NotTrained(t *testing.T) {
	ds := mustView(t, [][]float32{{1.0}})

	sq := New[float32, int8]()
	if _, err := sq.Transform(context.Background(), hostCtx(), ds); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Transform: expected ErrNotTrained, got %v", err)
	}

	q, _ := matrix.FromRows([][]int8{{0}})
	if _, err := sq.InverseTransform(context.Background(), hostCtx(), q); !errors.Is(err, ErrNotTrained) {
		t.Errorf("InverseTransform: expected ErrNotTrained, got %v", err)
	}
}

func TestScalarQuantizer_DomainMismatch(t *testing.T) {
	data := []float32{1.0, 2.0}
	deviceView, err := matrix.New(data, 1, 2, 2, matrix.Device)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sq := New[float32, int8]()
	trainErr := sq.Train(context.Background(), hostCtx(), DefaultParams(), deviceView)

	var mismatch *ErrDomainMismatch
	if !errors.As(trainErr, &mismatch) {
		t.Fatalf("Expected ErrDomainMismatch, got %v", trainErr)
	}
	if mismatch.Want != matrix.Host || mismatch.Got != matrix.Device {
		t.Errorf("Unexpected mismatch detail: want=%s got=%s", mismatch.Want, mismatch.Got)
	}
}

func TestScalarQuantizer_Int16Target(t *testing.T) {
	ds := mustView(t, [][]float32{{0.0, 100.0}})

	sq := New[float32, int16]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	wantScale := float64(math.MaxInt16-math.MinInt16) / 100.0
	if sq.Scale() != wantScale {
		t.Errorf("Expected scale=%f, got %f", wantScale, sq.Scale())
	}

	out, err := sq.Transform(context.Background(), hostCtx(), ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out.At(0, 0) != math.MinInt16 {
		t.Errorf("Expected %d, got %d", math.MinInt16, out.At(0, 0))
	}
	if out.At(0, 1) != math.MaxInt16 {
		t.Errorf("Expected %d, got %d", math.MaxInt16, out.At(0, 1))
	}
}

func TestScalarQuantizer_Float64Elements(t *testing.T) {
	ds, err := matrix.FromRows([][]float64{{-1.0, 0.0, 1.0}})
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}

	sq := New[float64, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if sq.Min() != -1.0 || sq.Max() != 1.0 {
		t.Errorf("Expected range [-1,1], got [%f,%f]", sq.Min(), sq.Max())
	}
	if sq.Scale() != 255.0/2.0 {
		t.Errorf("Expected scale=127.5, got %f", sq.Scale())
	}
}

func TestScalarQuantizer_Float16Elements(t *testing.T) {
	ds, err := matrix.FromRows([][]float16.Float16{
		{float16.Fromfloat32(-2.0), float16.Fromfloat32(0.5)},
		{float16.Fromfloat32(1.0), float16.Fromfloat32(4.0)},
	})
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}

	sq := New[float16.Float16, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if sq.Min().Float32() != -2.0 {
		t.Errorf("Expected min=-2.0, got %f", sq.Min().Float32())
	}
	if sq.Max().Float32() != 4.0 {
		t.Errorf("Expected max=4.0, got %f", sq.Max().Float32())
	}

	out, err := sq.Transform(context.Background(), hostCtx(), ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out.At(0, 0) != -128 {
		t.Errorf("Expected min value to map to -128, got %d", out.At(0, 0))
	}
	if out.At(1, 1) != 127 {
		t.Errorf("Expected max value to map to 127, got %d", out.At(1, 1))
	}
}

func TestScalarQuantizer_DeviceContextMatchesHost(t *testing.T) {
	rows := make([][]float32, 8)
	for i := range rows {
		row := make([]float32, 8)
		for j := range row {
			row[j] = float32(i*8+j) * 0.37
		}
		rows[i] = row
	}
	hostDS := mustView(t, rows)

	hrc := hostCtx()
	hsq := New[float32, int8]()
	if err := hsq.Train(context.Background(), hrc, Params{Quantile: 1.0}, hostDS); err != nil {
		t.Fatalf("Host Train failed: %v", err)
	}
	hostOut, err := hsq.Transform(context.Background(), hrc, hostDS)
	if err != nil {
		t.Fatalf("Host Transform failed: %v", err)
	}

	deviceDS, err := matrix.New(hostDS.Data(), hostDS.Rows(), hostDS.Cols(), hostDS.Stride(), matrix.Device)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	drc := resource.NewDeviceContext(0)
	defer drc.Close()

	dsq := New[float32, int8]()
	if err := dsq.Train(context.Background(), drc, Params{Quantile: 1.0}, deviceDS); err != nil {
		t.Fatalf("Device Train failed: %v", err)
	}
	if dsq.Min() != hsq.Min() || dsq.Max() != hsq.Max() || dsq.Scale() != hsq.Scale() {
		t.Fatalf("Device training diverged: min=%f max=%f scale=%f", dsq.Min(), dsq.Max(), dsq.Scale())
	}

	deviceOut, err := dsq.Transform(context.Background(), drc, deviceDS)
	if err != nil {
		t.Fatalf("Device Transform failed: %v", err)
	}
	if err := drc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	for r := int64(0); r < hostOut.Rows(); r++ {
		for c := int64(0); c < hostOut.Cols(); c++ {
			if hostOut.At(r, c) != deviceOut.At(r, c) {
				t.Errorf("Device result differs at (%d,%d): %d != %d", r, c, deviceOut.At(r, c), hostOut.At(r, c))
			}
		}
	}
}

func TestScalarQuantizer_BinaryRoundTrip(t *testing.T) {
	ds := mustView(t, [][]float32{{0.0, 100.0}})

	sq := New[float32, int8]()
	if err := sq.Train(context.Background(), hostCtx(), Params{Quantile: 1.0}, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	data, err := sq.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	restored := New[float32, int8]()
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}

	if !restored.Trained() {
		t.Error("Expected restored quantizer to be trained")
	}
	if restored.Min() != sq.Min() || restored.Max() != sq.Max() || restored.Scale() != sq.Scale() {
		t.Errorf("State mismatch: min=%f max=%f scale=%f", restored.Min(), restored.Max(), restored.Scale())
	}

	if err := restored.UnmarshalBinary(data[:10]); err == nil {
		t.Error("Expected error for truncated data")
	}
}
