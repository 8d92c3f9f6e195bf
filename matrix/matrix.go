package matrix

import (
	"errors"
	"fmt"

	"github.com/x448/float16"
)

// Scalar is the set of element types a View can carry: the floating-point
// source precisions (fp16 stored as x448/float16 bit patterns, fp32, fp64)
// and the signed integer target precisions of the quantized domain.
type Scalar interface {
	float16.Float16 | float32 | float64 | int8 | int16
}

// ErrInvalidShape is returned when rows, cols or stride describe an
// impossible layout.
var ErrInvalidShape = errors.New("invalid matrix shape")

// ErrShortBuffer is returned when the backing slice is too small for the
// described layout.
var ErrShortBuffer = errors.New("matrix buffer too small")

// View is a row-major two-dimensional view over a flat buffer.
//
// The zero View is empty. Views are cheap to copy; they alias the backing
// buffer and carry no ownership.
type View[T Scalar] struct {
	data   []T
	rows   int64
	cols   int64
	stride int64
	domain Domain
}

// New creates a view over data with the given extents, stride (in elements)
// and memory domain. stride must be >= cols; the buffer must hold at least
// (rows-1)*stride + cols elements.
func New[T Scalar](data []T, rows, cols, stride int64, domain Domain) (View[T], error) {
	if rows < 0 || cols < 0 || stride < cols {
		return View[T]{}, fmt.Errorf("%w: rows=%d cols=%d stride=%d", ErrInvalidShape, rows, cols, stride)
	}
	if rows > 0 && cols > 0 {
		need := (rows-1)*stride + cols
		if int64(len(data)) < need {
			return View[T]{}, fmt.Errorf("%w: have %d elements, need %d", ErrShortBuffer, len(data), need)
		}
	}
	return View[T]{data: data, rows: rows, cols: cols, stride: stride, domain: domain}, nil
}

// FromSlice creates a densely packed host view (stride == cols) over data.
func FromSlice[T Scalar](data []T, rows, cols int64) (View[T], error) {
	return New(data, rows, cols, cols, Host)
}

// FromRows creates a densely packed host view by copying the given rows into
// a fresh contiguous buffer. All rows must have equal length.
func FromRows[T Scalar](rows [][]T) (View[T], error) {
	if len(rows) == 0 {
		return View[T]{}, nil
	}
	cols := len(rows[0])
	data := make([]T, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return View[T]{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidShape, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return FromSlice(data, int64(len(rows)), int64(cols))
}

// Rows returns the number of rows.
func (v View[T]) Rows() int64 { return v.rows }

// Cols returns the number of columns.
func (v View[T]) Cols() int64 { return v.cols }

// Stride returns the row stride in elements.
func (v View[T]) Stride() int64 { return v.stride }

// Domain returns the memory domain the view's buffer lives in.
func (v View[T]) Domain() Domain { return v.domain }

// Len returns the number of logical elements (rows * cols).
func (v View[T]) Len() int64 { return v.rows * v.cols }

// IsEmpty reports whether the view has zero rows or zero columns.
func (v View[T]) IsEmpty() bool { return v.rows == 0 || v.cols == 0 }

// Row returns the i-th row as a slice of length Cols.
//
// The slice aliases the view's buffer. For device views the caller must be an
// operation issued on the owning stream.
func (v View[T]) Row(i int64) []T {
	off := i * v.stride
	return v.data[off : off+v.cols : off+v.cols]
}

// At returns the element at row i, column j.
func (v View[T]) At(i, j int64) T { return v.data[i*v.stride+j] }

// Data returns the backing buffer.
func (v View[T]) Data() []T { return v.data }

// SameShape reports whether the view has identical extents as the other
// view's. Strides and element types may differ.
func SameShape[A, B Scalar](a View[A], b View[B]) bool {
	return a.rows == b.rows && a.cols == b.cols
}
