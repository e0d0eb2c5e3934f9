package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/cookie-accounts-cli/internal/application"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newSwitchCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <account>",
		Short: "Switch the browser to a shared account by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := application.SwitchCommand{AccountRef: args[0]}

			account, err := app.service.ResolveAccount(cmd.Context(), command.AccountRef)
			if err != nil {
				return explainRegistryError(err)
			}
			if err := app.coordinator.Load(cmd.Context()); err != nil {
				return err
			}

			var current domain.CurrentAccount
			err = runSwitchProgress(cmd.Context(), cmd.ErrOrStderr(), account.DisplayName(), func(ctx context.Context) error {
				var switchErr error
				current, switchErr = app.coordinator.SwitchAccount(ctx, account)
				return switchErr
			})
			if err != nil {
				return explainRegistryError(err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Switched to %s (%s)\n", current.Account.DisplayName(), current.Account.ID)
			for _, d := range app.coordinator.ManagedDomains() {
				_, _ = fmt.Fprintf(out, "  %s\n", d)
			}
			return nil
		},
	}

	return cmd
}

// explainRegistryError adds the command that fixes a missing or rejected login.
func explainRegistryError(err error) error {
	if errors.Is(err, domain.ErrNotLoggedIn) || errors.Is(err, domain.ErrUnauthorized) {
		return fmt.Errorf("%w; run `ca login --email <email>` first", err)
	}
	return err
}
