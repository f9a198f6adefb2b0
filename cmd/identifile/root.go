package main

import (
	"github.com/gobeaver/identifile"
	_ "github.com/gobeaver/identifile/driver/local"
	_ "github.com/gobeaver/identifile/driver/memory"
	_ "github.com/gobeaver/identifile/driver/zip"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	logLevel  string
	logFormat string
	rules     string
	workers   int
}

// app carries the state shared by subcommands once flags are parsed.
type app struct {
	cfg     *identifile.Config
	logger  *logrus.Logger
	sniffer *identifile.Sniffer
}

func newRootCmd() *cobra.Command {
	var gf globalFlags
	a := &app{}

	root := &cobra.Command{
		Use:   "identifile",
		Short: "Identify compressed, archive and columnar file formats",
		Long: "identifile reports the format of files from their leading and trailing\n" +
			"bytes, falling back to the file extension when the bytes are inconclusive.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, gf)
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.StringVar(&gf.logLevel, "log-level", "", "log level (overrides BEAVER_IDENTIFILE_LOG_LEVEL)")
	pf.StringVar(&gf.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&gf.rules, "rules", "", "YAML file with additional signatures")
	pf.IntVar(&gf.workers, "workers", 0, "concurrent detections during scan")

	root.AddCommand(newDetectCmd(a))
	root.AddCommand(newScanCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newSignaturesCmd(a))
	return root
}

// setup loads configuration from the environment, applies flag overrides and
// builds the logger and Sniffer.
func (a *app) setup(cmd *cobra.Command, gf globalFlags) error {
	cfg, err := identifile.GetConfig()
	if err != nil {
		return err
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}
	if gf.logFormat != "" {
		cfg.LogFormat = gf.logFormat
	}
	if gf.rules != "" {
		cfg.RulesFile = gf.rules
	}
	if gf.workers > 0 {
		cfg.ScanWorkers = gf.workers
	}

	logger, err := identifile.NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	s, err := identifile.New(cfg, identifile.WithLogger(logger))
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.sniffer = s
	return nil
}
