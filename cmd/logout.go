package cmd

import (
	"fmt"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newLogoutCmd(app *app) *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the current account session and remove its cookies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.coordinator.Load(cmd.Context()); err != nil {
				return err
			}

			current, hadSession := app.coordinator.Current()
			if err := app.coordinator.TeardownCurrentSession(cmd.Context(), domain.ReasonLogout); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if hadSession {
				_, _ = fmt.Fprintf(out, "Signed out of %s (%s)\n", current.Account.DisplayName(), current.Account.ID)
			} else {
				_, _ = fmt.Fprintln(out, "No active account.")
			}

			if forget {
				if err := app.service.ForgetCredentials(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "Registry credentials removed.")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "forget", false, "Also delete the stored registry token")

	return cmd
}
