package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/cookie-accounts-cli/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var verbose bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()

			switch {
			case jsonOutput:
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			case verbose:
				revision := info.Revision
				if revision == "" {
					revision = "unknown"
				} else if info.Modified {
					revision += " (modified)"
				}
				_, err := fmt.Fprintf(out, "version:  %s\nrevision: %s\ngo:       %s\n", info.Version, revision, info.GoVersion)
				return err
			default:
				_, err := fmt.Fprintln(out, info.Version)
				return err
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include build revision and Go version")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print version information as JSON")

	return cmd
}
