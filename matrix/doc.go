// Package matrix provides row-major two-dimensional dataset views.
//
// A View describes a dense matrix without owning allocation policy: element
// type, 64-bit row/column extents, a row stride (in elements, allowing padded
// layouts), and a memory Domain tag. Views over host memory are plain Go
// slices; views over accelerator memory are produced by a device-bound
// resource.Context and must only be touched by operations issued on that
// context's stream.
//
// Views never copy data and never transfer it across memory domains.
package matrix
