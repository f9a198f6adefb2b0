package sniff

// Option configures a single detection call
type Option func(*Options)

// Options contains all per-call detection settings
type Options struct {
	// ExtensionHint is a filename suffix consulted when no byte rule matches.
	ExtensionHint string

	// UseExtensionHint enables the extension fallback. Defaults to true.
	UseExtensionHint bool

	// BufferNonSeekable reads sequential sources fully into memory so that
	// tail rules can be evaluated. Memory use is bounded only by the stream.
	BufferNonSeekable bool
}

func defaultOptions() Options {
	return Options{UseExtensionHint: true}
}

func processOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithExtensionHint sets the filename suffix used as a fallback hint
func WithExtensionHint(ext string) Option {
	return func(o *Options) {
		o.ExtensionHint = ext
	}
}

// WithUseExtensionHint enables or disables the extension fallback
func WithUseExtensionHint(use bool) Option {
	return func(o *Options) {
		o.UseExtensionHint = use
	}
}

// WithBufferNonSeekable enables or disables full buffering of sequential sources
func WithBufferNonSeekable(buffer bool) Option {
	return func(o *Options) {
		o.BufferNonSeekable = buffer
	}
}
