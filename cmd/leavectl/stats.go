// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/ManuGH/leavegate/internal/domain/leave/query"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *globalOpts) *cobra.Command {
	var f filterOpts
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count leave requests per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := opts.loadRecords(cmd.Context(), f.filter())
			if err != nil {
				return err
			}
			stats := query.Summarize(recs)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "total\t%d\n", stats.Total)
			_, _ = fmt.Fprintf(tw, "pending\t%d\n", stats.Pending)
			_, _ = fmt.Fprintf(tw, "pending_otp\t%d\n", stats.PendingOTP)
			_, _ = fmt.Fprintf(tw, "approved\t%d\n", stats.Approved)
			_, _ = fmt.Fprintf(tw, "rejected\t%d\n", stats.Rejected)
			return tw.Flush()
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
