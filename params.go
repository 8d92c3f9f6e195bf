package squant

// Params configures scalar quantizer training.
type Params struct {
	// Quantile controls how much of each tail of the value distribution is
	// excluded when computing the quantization range: a fraction of
	// (1 - Quantile) / 2 of the data mass is trimmed from each end.
	// Must be within (0, 1]; 1.0 uses the true minimum and maximum.
	Quantile float64
}

// DefaultParams returns the default training parameters (quantile 0.99,
// trimming half a percent from each tail).
func DefaultParams() Params {
	return Params{Quantile: 0.99}
}

// Validate checks the parameters against their documented ranges.
func (p Params) Validate() error {
	if !(p.Quantile > 0 && p.Quantile <= 1) {
		return &ErrInvalidParameter{Name: "quantile", Value: p.Quantile}
	}
	return nil
}
