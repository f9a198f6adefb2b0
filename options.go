package identifile

import "github.com/gobeaver/identifile/sniff"

// Option configures a single detection call
type Option = sniff.Option

// Per-call options, re-exported so callers need only this package.
var (
	WithExtensionHint     = sniff.WithExtensionHint
	WithUseExtensionHint  = sniff.WithUseExtensionHint
	WithBufferNonSeekable = sniff.WithBufferNonSeekable
)

// configOptions turns the detection defaults of cfg into options. They are
// applied before caller options, which take precedence. Unset fields leave
// the engine defaults in place.
func configOptions(cfg *Config) []Option {
	var opts []Option
	if cfg.DisableExtensionHint {
		opts = append(opts, WithUseExtensionHint(false))
	}
	if cfg.BufferNonSeekable {
		opts = append(opts, WithBufferNonSeekable(true))
	}
	return opts
}

func mergeOptions(defaults []Option, opts []Option) []Option {
	all := make([]Option, 0, len(defaults)+len(opts))
	all = append(all, defaults...)
	all = append(all, opts...)
	return all
}
