package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

func newCacheCmd(opts *options) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or delete cache snapshots",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List cache snapshots and their manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			store := newStore(cfg, observability.NewLogger(cfg), clockwork.NewRealClock(), "")
			entries, err := store.Status([]string{cfg.MagCacheKey, cfg.QuakeCacheKey})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSTATE\tSIZE\tROWS\tCREATED\tCOMPRESSED\tFINGERPRINT")
			for _, e := range entries {
				state, size, rows, created, compressed, fp := "missing", "-", "-", "-", "-", "-"
				if e.Exists {
					state = "present"
					size = fmt.Sprintf("%d", e.Size)
				}
				if m := e.Manifest; m != nil {
					rows = fmt.Sprintf("%d", m.Rows)
					created = m.CreatedAt.Format(time.RFC3339)
					compressed = fmt.Sprintf("%t", m.Compressed)
					fp = shorten(m.Fingerprint)
				} else if e.Exists {
					state = "present (no manifest)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.Key, state, size, rows, created, compressed, fp)
			}
			return tw.Flush()
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete cache snapshots and manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			store := newStore(cfg, observability.NewLogger(cfg), clockwork.NewRealClock(), "")
			removed, err := store.Clear([]string{cfg.MagCacheKey, cfg.QuakeCacheKey})
			for _, path := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), "removed", path)
			}
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to remove")
			}
			return nil
		},
	})

	return cacheCmd
}

func shorten(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	if fp == "" {
		return "-"
	}
	return fp
}
