package resource

import (
	"unsafe"

	"github.com/hupe1980/squant/matrix"
)

// Alignment is the byte alignment of buffers returned by the context
// allocator. 64 bytes covers cache lines and AVX-512 lanes.
const Alignment = 64

// AllocAligned allocates a byte slice of the given size starting at a
// 64-byte-aligned address. The slack needed to reach alignment is kept alive
// by the returned slice's backing array.
func AllocAligned(size int) []byte {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size+Alignment)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)
	return buf[offset : offset+uintptr(size)]
}

// Alloc allocates n elements of T through the context, aligned and accounted
// against the controller's memory limit. The reservation is not tied to the
// buffer's lifetime: callers running under a memory limit must return it with
// Controller().ReleaseMemory when discarding the buffer, or the limit fills
// up with dead reservations.
func Alloc[T matrix.Scalar](rc *Context, n int64) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	bytes := n * matrix.SizeOf[T]()
	if err := rc.Controller().AcquireMemory(bytes); err != nil {
		return nil, err
	}
	raw := AllocAligned(int(bytes))
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n), nil
}

// AllocMatrix allocates a densely packed rows x cols view in the context's
// memory domain.
func AllocMatrix[T matrix.Scalar](rc *Context, rows, cols int64) (matrix.View[T], error) {
	data, err := Alloc[T](rc, rows*cols)
	if err != nil {
		return matrix.View[T]{}, err
	}
	return matrix.New(data, rows, cols, cols, rc.Domain())
}
