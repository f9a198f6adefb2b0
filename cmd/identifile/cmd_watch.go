package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/gobeaver/identifile"
	"github.com/spf13/cobra"
)

type watchFlags struct {
	pattern string
	jsonOut bool
}

func newWatchCmd(a *app) *cobra.Command {
	var f watchFlags

	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Detect files as they are created or written",
		Long:  "Watch DIR and its subdirectories, detecting each new or modified file\nuntil interrupted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, a, f, args)
		},
	}

	cmd.Flags().StringVar(&f.pattern, "pattern", "", "glob matched against the path or base name")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print one JSON object per file")
	return cmd
}

func runWatch(cmd *cobra.Command, a *app, f watchFlags, args []string) error {
	cfg := *a.cfg
	cfg.Driver = "local"
	if len(args) == 1 {
		cfg.Root = args[0]
	}

	fs, err := identifile.OpenDriver(&cfg)
	if err != nil {
		return err
	}
	w, ok := fs.(identifile.Watcher)
	if !ok {
		return fmt.Errorf("driver %s does not support watching", cfg.Driver)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := a.sniffer.Watch(ctx, w, fs, f.pattern)
	if err != nil {
		return err
	}
	a.logger.WithField("root", cfg.Root).Info("watching")

	out := cmd.OutOrStdout()
	for r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
			continue
		}
		if err := printDetection(out, r.Path, r.Detection, f.jsonOut); err != nil {
			return err
		}
	}
	return nil
}
