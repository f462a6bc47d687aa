package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/keydash/internal/appupdate"
	"github.com/janekbaraniewski/keydash/internal/version"
)

func newVersionCommand(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(a.out, version.String())
			if !check {
				return nil
			}
			if !version.IsRelease() {
				fmt.Fprintln(a.out, "Development build; skipping update check.")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			res, err := appupdate.Check(ctx, appupdate.CheckOptions{CurrentVersion: version.Version})
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if a.jsonOut {
				return a.printJSON(res)
			}
			if !res.UpdateAvailable {
				fmt.Fprintf(a.out, "Up to date (%s)\n", res.CurrentVersion)
				return nil
			}
			fmt.Fprintf(a.out, "Update available: %s → %s\n", res.CurrentVersion, res.LatestVersion)
			if res.UpgradeHint != "" {
				fmt.Fprintf(a.out, "Upgrade with: %s\n", res.UpgradeHint)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}
