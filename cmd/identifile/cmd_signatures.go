package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/gobeaver/identifile/sniff"
	"github.com/spf13/cobra"
)

func newSignaturesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signatures",
		Short: "List registered signatures in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := a.sniffer.Registry().Snapshot()
			out := cmd.OutOrStdout()

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FORMAT\tCLASS\tCHECKS\tEXTENSIONS")
			for _, format := range snap.Formats() {
				rule, _ := snap.Rule(format)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					format,
					sniff.ClassOf(format),
					describeChecks(rule),
					strings.Join(rule.Extensions, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%d signatures, fingerprint %016x\n", snap.Len(), snap.Fingerprint())
			return nil
		},
	}
}

func describeChecks(rule sniff.Rule) string {
	var checks []string
	if len(rule.Start) > 0 {
		checks = append(checks, "start")
	}
	if len(rule.End) > 0 {
		checks = append(checks, "end")
	}
	if rule.Offset != nil {
		if rule.Offset.Anchor == sniff.AnchorEnd {
			checks = append(checks, fmt.Sprintf("offset(end-%d)", rule.Offset.Offset))
		} else {
			checks = append(checks, fmt.Sprintf("offset(%d)", rule.Offset.Offset))
		}
	}
	if rule.Range != nil {
		checks = append(checks, "range")
	}
	if len(checks) == 0 {
		return "-"
	}
	return strings.Join(checks, "+")
}
