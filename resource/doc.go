// Package resource manages the execution resources quantization operations
// run against: memory domains and allocation accounting, per-kernel
// parallelism bounds, IO throttling, and the ordered streams that sequence
// asynchronous device work.
package resource
