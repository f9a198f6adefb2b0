package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/gobeaver/identifile"
	"github.com/spf13/cobra"
)

type scanFlags struct {
	pattern string
	driver  string
	jsonOut bool
}

func newScanCmd(a *app) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan [DIR]",
		Short: "Detect the format of every file under a directory",
		Long: "Scan lists DIR recursively and detects each file concurrently.\n" +
			"DIR defaults to IDENTIFILE_ROOT. With --driver zip, DIR names a ZIP\n" +
			"archive and its entries are scanned.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, a, f, args)
		},
	}

	cmd.Flags().StringVar(&f.pattern, "pattern", "", "glob matched against the path or base name, e.g. \"*.{gz,zst}\"")
	cmd.Flags().StringVar(&f.driver, "driver", "", "storage backend (overrides IDENTIFILE_DRIVER)")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print one JSON object per file")
	return cmd
}

func runScan(cmd *cobra.Command, a *app, f scanFlags, args []string) error {
	cfg := *a.cfg
	if len(args) == 1 {
		cfg.Root = args[0]
	}
	if f.driver != "" {
		cfg.Driver = f.driver
	}

	fs, err := identifile.OpenDriver(&cfg)
	if err != nil {
		return err
	}
	if c, ok := fs.(io.Closer); ok {
		defer c.Close()
	}

	results, err := a.sniffer.Scan(cmd.Context(), fs, "", f.pattern)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.jsonOut {
		enc := json.NewEncoder(out)
		for _, r := range results {
			fields := r.Detection.Metadata()
			fields["path"] = r.Path
			fields["size"] = r.Size
			if r.Err != nil {
				fields["error"] = r.Err.Error()
			}
			if err := enc.Encode(fields); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tFORMAT\tCONFIDENCE\tMATCH")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t%v\n", r.Path, r.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Path, r.Detection.Format, r.Detection.Confidence, r.Detection.Match)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := identifile.Summarize(results)
	formats := make([]string, 0, len(counts))
	for format := range counts {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	fmt.Fprintf(out, "\n%d files\n", len(results))
	for _, format := range formats {
		name := format
		if name == "" {
			name = "unreadable"
		}
		fmt.Fprintf(out, "  %-12s %d\n", name, counts[format])
	}
	return nil
}
