package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

func newLedgerCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the processed-item ledger",
	}
	cmd.AddCommand(newLedgerListCommand(opts))
	return cmd
}

func newLedgerListCommand(opts *rootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print recorded items, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want types.Kind
			if kind != "" {
				want = types.Kind(kind)
				if !want.Valid() {
					return fmt.Errorf("invalid kind %q: must be submission or comment", kind)
				}
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, opts.cfg.Ledger)
			if err != nil {
				return err
			}
			led, err := ledger.Open(ctx, store)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer led.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tPROCESSED AT")
			n := 0
			for _, it := range led.Items() {
				if want != "" && it.Kind != want {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", it.ID, it.Kind, it.ProcessedAt.Format(time.RFC3339))
				n++
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d item(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only show submission or comment records")
	return cmd
}
