package resource

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimit is returned when an allocation would exceed the configured
// hard memory limit. Allocation failure is a fatal resource error for the
// issuing operation, not a retryable condition.
var ErrMemoryLimit = errors.New("memory limit exceeded")

// Config holds resource limits for a Controller.
type Config struct {
	// MemoryLimitBytes is the hard limit for buffers allocated through a
	// Context. If 0, usage is tracked but unbounded.
	MemoryLimitBytes int64

	// KernelWorkers caps the goroutines a single bulk kernel may fan out to.
	// If 0, defaults to runtime.GOMAXPROCS(0).
	KernelWorkers int

	// IOLimitBytesPerSec throttles artifact store reads and writes.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller tracks and limits the resources shared by all operations issued
// against the contexts that reference it.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a controller with the given limits.
func NewController(cfg Config) *Controller {
	if cfg.KernelWorkers <= 0 {
		cfg.KernelWorkers = runtime.GOMAXPROCS(0)
	}

	c := &Controller{cfg: cfg}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// KernelWorkers returns the per-kernel parallelism bound.
func (c *Controller) KernelWorkers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return c.cfg.KernelWorkers
}

// AcquireMemory reserves bytes against the memory limit without blocking.
// Returns ErrMemoryLimit if the reservation would exceed the configured
// limit.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimit
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns a reservation made by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireIO waits until the IO limit allows the given number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
