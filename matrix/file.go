package matrix

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// File is a read-only host view backed by a memory-mapped dataset file.
//
// The file is interpreted as a densely packed row-major array of native
// little-endian elements; rows are derived from the file size and the column
// count. The view returned by View aliases the mapping and must not be used
// after Close.
type File[T Scalar] struct {
	view   View[T]
	raw    []byte
	unmap  func([]byte) error
	closed atomic.Bool
}

// OpenFile maps the dataset file at path as a host view with the given
// column count. The file size must be a whole number of rows.
func OpenFile[T Scalar](path string, cols int64) (*File[T], error) {
	if cols <= 0 {
		return nil, fmt.Errorf("%w: cols=%d", ErrInvalidShape, cols)
	}

	raw, unmap, err := mapFile(path)
	if err != nil {
		return nil, err
	}

	elemSize := SizeOf[T]()
	rowBytes := cols * elemSize
	if int64(len(raw))%rowBytes != 0 {
		if unmap != nil {
			_ = unmap(raw)
		}
		return nil, fmt.Errorf("%w: file size %d is not a multiple of row size %d", ErrInvalidShape, len(raw), rowBytes)
	}
	rows := int64(len(raw)) / rowBytes

	var data []T
	if len(raw) > 0 {
		data = unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), rows*cols)
	}
	view, err := New(data, rows, cols, cols, Host)
	if err != nil {
		if unmap != nil {
			_ = unmap(raw)
		}
		return nil, err
	}

	return &File[T]{view: view, raw: raw, unmap: unmap}, nil
}

// View returns the mapped dataset view. Valid until Close.
func (f *File[T]) View() View[T] { return f.view }

// Close unmaps the file. It is idempotent.
func (f *File[T]) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	if f.unmap != nil && f.raw != nil {
		return f.unmap(f.raw)
	}
	return nil
}

// SizeOf returns the element size in bytes for T.
func SizeOf[T Scalar]() int64 {
	var z T
	switch any(z).(type) {
	case float64:
		return 8
	case float32:
		return 4
	case int16:
		return 2
	case int8:
		return 1
	default: // float16.Float16
		return 2
	}
}
