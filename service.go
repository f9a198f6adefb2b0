package identifile

import (
	"fmt"
	"io"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/gobeaver/identifile/sniff"
	"github.com/sirupsen/logrus"
)

// Global instance
var (
	defaultSniffer *Sniffer
	defaultOnce    sync.Once
	defaultErr     error
)

// Sniffer is a configured detection service: a registry, a detector over
// it and the defaults taken from Config.
type Sniffer struct {
	registry *sniff.Registry
	detector *sniff.Detector
	logger   logrus.FieldLogger
	defaults []Option
	workers  int
}

// ServiceOption configures a Sniffer at construction
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	registry *sniff.Registry
	logger   logrus.FieldLogger
}

// WithRegistry makes the Sniffer match against reg instead of a private
// registry seeded with the built-in signatures.
func WithRegistry(reg *sniff.Registry) ServiceOption {
	return func(o *serviceOptions) {
		o.registry = reg
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// Builder provides a way to create Sniffer instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Sniffer instance using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new Sniffer instance using the builder's prefix
func (b *Builder) New(opts ...ServiceOption) (*Sniffer, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Init initializes the global Sniffer instance
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultSniffer, defaultErr = New(cfg)
	})

	return defaultErr
}

// New creates a new Sniffer with given config. When cfg.RulesFile is set the
// rules it declares are added to the registry.
func New(cfg *Config, opts ...ServiceOption) (*Sniffer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &serviceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	registry := o.registry
	if registry == nil {
		registry = sniff.NewDefaultRegistry()
	}

	logger := o.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	if cfg.RulesFile != "" {
		n, err := LoadRulesFile(cfg.RulesFile, registry)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		logger.WithFields(logrus.Fields{"file": cfg.RulesFile, "rules": n}).Info("rule file loaded")
	}

	workers := cfg.ScanWorkers
	if workers == 0 {
		workers = 1
	}

	return &Sniffer{
		registry: registry,
		detector: sniff.NewDetector(registry, sniff.WithLogger(logger)),
		logger:   logger,
		defaults: configOptions(cfg),
		workers:  workers,
	}, nil
}

// Registry returns the registry the Sniffer matches against
func (s *Sniffer) Registry() *sniff.Registry {
	return s.registry
}

// DetectStream identifies the format of src. It never fails.
func (s *Sniffer) DetectStream(src io.Reader, opts ...Option) sniff.Detection {
	return s.detector.DetectStream(src, mergeOptions(s.defaults, opts)...)
}

// DetectBytes identifies the format of an in-memory payload
func (s *Sniffer) DetectBytes(data []byte, opts ...Option) sniff.Detection {
	return s.detector.DetectBytes(data, mergeOptions(s.defaults, opts)...)
}

// DetectPath opens a local path read-only and identifies its format
func (s *Sniffer) DetectPath(path string, opts ...Option) (sniff.Detection, error) {
	return s.detector.DetectPath(path, mergeOptions(s.defaults, opts)...)
}

// RegisterSignature adds a rule under format. See sniff.Registry.Add.
func (s *Sniffer) RegisterSignature(format string, rule sniff.Rule, overwrite bool) error {
	if err := s.registry.Add(format, rule, overwrite); err != nil {
		return err
	}
	s.logger.WithField("format", format).Debug("signature registered")
	return nil
}

// RemoveSignature removes the rule for format; unknown formats are ignored
func (s *Sniffer) RemoveSignature(format string) {
	s.registry.Remove(format)
	s.logger.WithField("format", format).Debug("signature removed")
}

// Signatures returns the registered format identifiers in match order
func (s *Sniffer) Signatures() []string {
	return s.registry.Formats()
}

// Default returns the global instance, initializing it from the environment
// on first use. It is safe for concurrent use.
func Default() (*Sniffer, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return defaultSniffer, nil
}

// NewFromEnv creates instance from environment variables (convenience constructor)
func NewFromEnv(opts ...ServiceOption) (*Sniffer, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultSniffer = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// DetectStream identifies src using the global instance. If the global
// instance cannot be initialized, the process-wide default registry is used
// with default options.
func DetectStream(src io.Reader, opts ...Option) sniff.Detection {
	s, err := Default()
	if err != nil {
		return sniff.NewDetector(nil).DetectStream(src, opts...)
	}
	return s.DetectStream(src, opts...)
}

// DetectPath identifies a local file using the global instance
func DetectPath(path string, opts ...Option) (sniff.Detection, error) {
	s, err := Default()
	if err != nil {
		return sniff.Unknown(), err
	}
	return s.DetectPath(path, opts...)
}

// RegisterSignature adds a rule to the global instance
func RegisterSignature(format string, rule sniff.Rule, overwrite bool) error {
	s, err := Default()
	if err != nil {
		return err
	}
	return s.RegisterSignature(format, rule, overwrite)
}

// RemoveSignature removes a rule from the global instance
func RemoveSignature(format string) error {
	s, err := Default()
	if err != nil {
		return err
	}
	s.RemoveSignature(format)
	return nil
}
