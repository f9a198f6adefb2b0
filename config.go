package identifile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Storage backend used by scan and watch (local, memory)
	Driver string `env:"IDENTIFILE_DRIVER,default:local"`

	// Root directory of the local driver
	Root string `env:"IDENTIFILE_ROOT,default:."`

	// Never fall back to the filename extension when no byte signature
	// matches. The zero value keeps the fallback on.
	DisableExtensionHint bool `env:"IDENTIFILE_DISABLE_EXTENSION_HINT,default:false"`

	// Read non-seekable sources fully into memory so tail rules can run
	BufferNonSeekable bool `env:"IDENTIFILE_BUFFER_NON_SEEKABLE,default:false"`

	// Optional YAML rule file loaded on top of the built-in signatures
	RulesFile string `env:"IDENTIFILE_RULES_FILE"`

	// Maximum number of files detected concurrently by Scan
	ScanWorkers int `env:"IDENTIFILE_SCAN_WORKERS,default:8"`

	// Logging
	LogLevel  string `env:"IDENTIFILE_LOG_LEVEL,default:warn"`
	LogFormat string `env:"IDENTIFILE_LOG_FORMAT,default:text"` // text or json
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg.ScanWorkers < 0 {
		return fmt.Errorf("scan workers must not be negative (got %d)", cfg.ScanWorkers)
	}

	if cfg.LogLevel != "" {
		if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %s", cfg.LogFormat)
	}

	return nil
}

// NewLogger builds a logger from the logging fields of cfg, writing to out.
// A nil out writes to stderr.
func NewLogger(cfg *Config, out io.Writer) (*logrus.Logger, error) {
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)

	level := logrus.WarnLevel
	if cfg.LogLevel != "" {
		parsed, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger, nil
}
