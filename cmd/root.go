package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ca",
		Short:         "Cookie Accounts CLI (ca): share registry accounts through browser cookies",
		Long:          "ca (Cookie Accounts CLI) logs in to an account registry, switches the browser between shared accounts by applying their cookies, and keeps the registry session in step with the browser's tabs.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newVersionCmd())

	app, err := wireApp()
	if err != nil {
		// Anything but version reports the configuration error.
		rootCmd.Args = cobra.ArbitraryArgs
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	rootCmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		app.close()
	}

	rootCmd.AddCommand(
		newLoginCmd(app),
		newAccountsCmd(app),
		newSwitchCmd(app),
		newLogoutCmd(app),
		newStatusCmd(app),
		newDomainsCmd(app),
		newEventsCmd(app),
		newDaemonCmd(app),
	)

	return rootCmd
}
