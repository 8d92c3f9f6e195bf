package matrix

// Domain tags the memory domain a buffer lives in.
//
// The quantization kernels are placement-agnostic in result but never move
// data between domains: mixing a Host view with a Device context (or the
// reverse) is a precondition violation, not a transparent transfer.
type Domain uint8

const (
	// Host marks ordinary host-addressable memory.
	Host Domain = iota
	// Device marks accelerator-local memory owned by a device context.
	Device
)

// String returns the string representation of the domain.
func (d Domain) String() string {
	switch d {
	case Host:
		return "host"
	case Device:
		return "device"
	default:
		return "unknown"
	}
}
