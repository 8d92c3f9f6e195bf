package resource

import (
	"context"

	"github.com/hupe1980/squant/matrix"
)

// Context is the execution-context handle passed to every quantization
// operation. It threads together an allocator domain, a device identity and,
// for device contexts, the stream that orders asynchronous work. Contexts are
// passed by reference and never retained beyond a call.
type Context struct {
	domain     matrix.Domain
	device     int
	controller *Controller
	stream     *Stream
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithController attaches a resource controller. Contexts without one are
// unlimited.
func WithController(c *Controller) ContextOption {
	return func(rc *Context) { rc.controller = c }
}

// NewHostContext creates a context whose allocations and kernels run in host
// memory. Host operations complete before returning; Sync is a no-op.
func NewHostContext(opts ...ContextOption) *Context {
	rc := &Context{domain: matrix.Host, device: -1}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// NewDeviceContext creates a context bound to the given device ordinal.
// Operations issued against it are enqueued on its stream and may not have
// completed when the call returns; use Sync before reading outputs.
//
// The caller owns the context and must Close it to stop the stream.
func NewDeviceContext(device int, opts ...ContextOption) *Context {
	rc := &Context{domain: matrix.Device, device: device, stream: newStream()}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Domain returns the memory domain this context allocates in and operates on.
func (rc *Context) Domain() matrix.Domain { return rc.domain }

// DeviceID returns the device ordinal, or -1 for host contexts.
func (rc *Context) DeviceID() int { return rc.device }

// Controller returns the attached resource controller, which may be nil.
func (rc *Context) Controller() *Controller { return rc.controller }

// Stream returns the context's stream, or nil for host contexts.
func (rc *Context) Stream() *Stream { return rc.stream }

// Sync blocks until all work issued against this context has completed.
// For host contexts it returns immediately.
func (rc *Context) Sync(ctx context.Context) error {
	if rc.stream == nil {
		return nil
	}
	return rc.stream.Sync(ctx)
}

// Close releases the context's stream. Host contexts close trivially.
func (rc *Context) Close() error {
	if rc.stream == nil {
		return nil
	}
	return rc.stream.Close()
}
