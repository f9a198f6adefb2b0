package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gobeaver/identifile"
	"github.com/gobeaver/identifile/sniff"
	"github.com/spf13/cobra"
)

type detectFlags struct {
	hint            string
	noExtensionHint bool
	buffer          bool
	jsonOut         bool
}

func newDetectCmd(a *app) *cobra.Command {
	var f detectFlags

	cmd := &cobra.Command{
		Use:   "detect [paths...]",
		Short: "Detect the format of files or standard input",
		Long: "Detect the format of each path. With no paths, or the path \"-\",\n" +
			"standard input is read.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, a, f, args)
		},
	}

	cmd.Flags().StringVar(&f.hint, "hint", "", "extension hint, e.g. .snappy (overrides the path's extension)")
	cmd.Flags().BoolVar(&f.noExtensionHint, "no-extension-hint", false, "ignore extensions entirely")
	cmd.Flags().BoolVar(&f.buffer, "buffer", false, "buffer non-seekable input so trailing signatures can be checked")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print one JSON object per input")
	return cmd
}

func (f detectFlags) options(cmd *cobra.Command) []identifile.Option {
	var opts []identifile.Option
	if f.hint != "" {
		opts = append(opts, identifile.WithExtensionHint(f.hint))
	}
	if f.noExtensionHint {
		opts = append(opts, identifile.WithUseExtensionHint(false))
	}
	if cmd.Flags().Changed("buffer") {
		opts = append(opts, identifile.WithBufferNonSeekable(f.buffer))
	}
	return opts
}

func runDetect(cmd *cobra.Command, a *app, f detectFlags, args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}

	out := cmd.OutOrStdout()
	opts := f.options(cmd)

	failed := 0
	for _, p := range args {
		var (
			det sniff.Detection
			err error
		)
		if p == "-" {
			det = a.sniffer.DetectStream(cmd.InOrStdin(), opts...)
		} else {
			det, err = a.sniffer.DetectPath(p, opts...)
		}
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
			continue
		}
		if err := printDetection(out, p, det, f.jsonOut); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs could not be read", failed, len(args))
	}
	return nil
}

func printDetection(out io.Writer, p string, det sniff.Detection, jsonOut bool) error {
	if !jsonOut {
		_, err := fmt.Fprintf(out, "%s: %s\n", p, det.Summary())
		return err
	}

	fields := det.Metadata()
	fields["path"] = p
	return json.NewEncoder(out).Encode(fields)
}
