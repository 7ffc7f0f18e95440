package cli

import (
	"github.com/spf13/cobra"

	"eve-hubarb/internal/report"
)

func newHubsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hubs",
		Short: "List the tabled trade hubs and travel between them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return report.WriteHubs(cmd.OutOrStdout(), a.tables)
		},
	}
}
