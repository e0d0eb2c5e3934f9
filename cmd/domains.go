package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDomainsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "Print the domains the current account manages, one per line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.coordinator.Load(cmd.Context()); err != nil {
				return err
			}

			for _, d := range app.coordinator.ManagedDomains() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), d); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
