// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/leavegate/internal/authz"
	"github.com/ManuGH/leavegate/internal/config"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/domain/leave/query"
	"github.com/ManuGH/leavegate/internal/domain/leave/store"
	"github.com/spf13/cobra"
)

// globalOpts are the persistent flags shared by every subcommand.
type globalOpts struct {
	configPath string
	backend    string
	path       string
}

// filterOpts select the records a command reads.
type filterOpts struct {
	status string
	search string
	from   string
	to     string
}

func (f *filterOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "only this status (pending, pending_otp, approved, rejected)")
	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive substring of reason, student or hostel")
	cmd.Flags().StringVar(&f.from, "from", "", "applied on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "applied on or before YYYY-MM-DD")
}

func (f filterOpts) filter() query.Filter {
	return query.Filter{
		Status: strings.TrimSpace(f.status),
		Search: f.search,
		From:   model.Date(strings.TrimSpace(f.from)),
		To:     model.Date(strings.TrimSpace(f.to)),
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:   "leavectl",
		Short: "Operate on a leavegate data directory",
		Long: `leavectl reads the leave store directly, without a running daemon.

Examples:
  # Export approved leaves of January
  leavectl export --status approved --from 2024-01-01 --to 2024-01-31 -o january.csv

  # Counts per status
  leavectl stats --config /etc/leavegate/config.yaml

  # Hash a password for the users file
  leavectl hash-password
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML); env and defaults otherwise")
	root.PersistentFlags().StringVar(&opts.backend, "store", "", "store backend override (sqlite, badger)")
	root.PersistentFlags().StringVar(&opts.path, "store-path", "", "store path override")

	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newUsersCmd())
	return root
}

// openStore opens the store the daemon would use, honoring the overrides.
func (o *globalOpts) openStore() (store.StateStore, error) {
	cfg, err := config.NewLoader(strings.TrimSpace(o.configPath), version).Load()
	if err != nil {
		return nil, err
	}
	backend, path := cfg.Store.Backend, cfg.Store.Path
	if o.backend != "" {
		backend = o.backend
	}
	if o.path != "" {
		path = o.path
	}
	if backend == store.BackendMemory {
		return nil, fmt.Errorf("the %s store backend holds no data outside the daemon", backend)
	}
	return store.OpenStateStore(backend, path)
}

// loadRecords returns every matching record in listing order.
func (o *globalOpts) loadRecords(ctx context.Context, f query.Filter) ([]*model.LeaveRequest, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	st, err := o.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	all := query.Visibility{Scope: authz.ScopeAll}
	sf, ok := all.StoreFilter(f)
	if !ok {
		return nil, nil
	}
	recs, err := st.QueryRequests(ctx, sf)
	if err != nil {
		return nil, err
	}
	return query.Apply(all, recs, f), nil
}
