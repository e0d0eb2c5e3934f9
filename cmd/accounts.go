package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountsCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the accounts the registry shares with you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.service.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(accountViews(accounts))
			}

			var currentID domain.AccountID
			if err := app.coordinator.Load(cmd.Context()); err != nil {
				return err
			}
			if current, ok := app.coordinator.Current(); ok {
				currentID = current.Account.ID
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), app.accountsRenderer(accounts, currentID))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print accounts as JSON")

	return cmd
}

// accountView leaves cookie values out of machine-readable output.
type accountView struct {
	ID                 domain.AccountID `json:"id"`
	Name               string           `json:"name"`
	Domains            []string         `json:"domains"`
	MaxConcurrentUsers int              `json:"max_concurrent_users"`
}

func accountViews(accounts []domain.Account) []accountView {
	views := make([]accountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, accountView{
			ID:                 account.ID,
			Name:               account.Name,
			Domains:            domain.DomainsOf(account),
			MaxConcurrentUsers: account.MaxConcurrentUsers,
		})
	}
	return views
}
