package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	statusadapter "github.com/bnema/cookie-accounts-cli/internal/adapters/render/status"
	"github.com/bnema/cookie-accounts-cli/internal/application"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		asJSON bool
		live   bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current account session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.coordinator.Load(cmd.Context()); err != nil {
				return err
			}

			status, err := app.service.Status(cmd.Context(), app.coordinator, live)
			if err != nil {
				return err
			}

			return writeStatusOutput(cmd, app, status, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	cmd.Flags().BoolVar(&live, "live", true, "Ask the registry for the session's seat counters")

	return cmd
}

type statusView struct {
	User     string          `json:"user,omitempty"`
	DeviceID string          `json:"device_id,omitempty"`
	LoggedIn bool            `json:"logged_in"`
	Current  *currentView    `json:"current,omitempty"`
	Managed  []string        `json:"managed_domains"`
	Remote   *remoteSeatView `json:"remote,omitempty"`
	Error    string          `json:"registry_error,omitempty"`
}

type currentView struct {
	AccountID  domain.AccountID `json:"account_id"`
	Name       string           `json:"name"`
	SessionKey string           `json:"session_key"`
	Domain     string           `json:"domain"`
	AppliedAt  time.Time        `json:"applied_at"`
}

type remoteSeatView struct {
	ActiveSessions     int  `json:"active_sessions"`
	MaxConcurrentUsers int  `json:"max_concurrent_users"`
	Exceeded           bool `json:"exceeded"`
}

func newStatusView(status application.Status) statusView {
	view := statusView{
		User:     status.User.Email,
		DeviceID: status.DeviceID,
		LoggedIn: status.LoggedIn,
		Managed:  append([]string{}, status.Managed...),
	}
	if status.Current != nil {
		view.Current = &currentView{
			AccountID:  status.Current.Account.ID,
			Name:       status.Current.Account.DisplayName(),
			SessionKey: string(status.Current.SessionKey),
			Domain:     status.Current.Domain,
			AppliedAt:  status.Current.AppliedAt,
		}
	}
	if status.Remote != nil {
		view.Remote = &remoteSeatView{
			ActiveSessions:     status.Remote.ActiveSessions,
			MaxConcurrentUsers: status.Remote.MaxConcurrentUsers,
			Exceeded:           status.Remote.Exceeded(),
		}
	}
	if status.RemoteErr != nil {
		view.Error = status.RemoteErr.Error()
	}
	return view
}

func writeStatusOutput(cmd *cobra.Command, app *app, status application.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(newStatusView(status))
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), app.statusRenderer(status, statusadapter.RenderOptions{Now: app.now()}))
	return err
}
