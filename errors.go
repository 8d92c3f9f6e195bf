package squant

import (
	"errors"
	"fmt"

	"github.com/hupe1980/squant/matrix"
)

var (
	// ErrNotTrained is returned when a transform is invoked before a
	// successful Train.
	ErrNotTrained = errors.New("scalar quantizer not trained")

	// ErrEmptyInput is returned when a dataset has zero rows or zero columns.
	ErrEmptyInput = errors.New("empty dataset")
)

// ErrInvalidParameter indicates a quantization parameter outside its valid
// range. It is detected eagerly at the start of training; no partial state is
// written.
type ErrInvalidParameter struct {
	Name  string
	Value float64
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s: %v", e.Name, e.Value)
}

// ErrShapeMismatch indicates an output buffer whose shape differs from the
// input dataset's.
type ErrShapeMismatch struct {
	WantRows, WantCols int64
	GotRows, GotCols   int64
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch: want %dx%d, got %dx%d",
		e.WantRows, e.WantCols, e.GotRows, e.GotCols)
}

// ErrDomainMismatch indicates a view in one memory domain passed to a context
// bound to another. Data is never transferred across domains silently.
type ErrDomainMismatch struct {
	Want, Got matrix.Domain
}

func (e *ErrDomainMismatch) Error() string {
	return fmt.Sprintf("memory domain mismatch: context is %s, view is %s", e.Want, e.Got)
}
