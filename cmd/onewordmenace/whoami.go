package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Check the Reddit credentials and print the account name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := opts.cfg.Reddit
			var errs []error
			if rc.ClientID == "" {
				errs = append(errs, errors.New("reddit.client_id is required"))
			}
			if rc.ClientSecret == "" {
				errs = append(errs, errors.New("reddit.client_secret is required"))
			}
			if rc.RefreshToken == "" {
				errs = append(errs, errors.New("reddit.refresh_token is required"))
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}

			name, err := newRedditClient(cmd.Context(), opts).Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("token check failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "authenticated as u/%s\n", name)
			return nil
		},
	}
}
