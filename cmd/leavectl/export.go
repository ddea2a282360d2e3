// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"time"

	"github.com/ManuGH/leavegate/internal/domain/leave/report"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *globalOpts) *cobra.Command {
	var f filterOpts
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the leave history as CSV",
		Long:  "Writes the same CSV the API serves. With -o the file is replaced atomically; otherwise it goes to stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := opts.loadRecords(cmd.Context(), f.filter())
			if err != nil {
				return err
			}
			if out == "" {
				return report.WriteCSV(cmd.OutOrStdout(), recs)
			}
			if out == "-auto" {
				out = report.FileName(time.Now())
			}
			if err := report.WriteFile(cmd.Context(), out, recs); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", len(recs), out)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "", `output file; "-auto" names it leave-history-<date>.csv`)
	return cmd
}
