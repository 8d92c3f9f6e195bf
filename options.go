package squant

type options struct {
	logger *Logger
}

// Option configures a ScalarQuantizer at construction time.
type Option func(*options)

// WithLogger attaches a structured logger. The default discards all output.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}
