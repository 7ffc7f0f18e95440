package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"eve-hubarb/internal/db"
	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/report"
)

func newTopCommand(a *app) *cobra.Command {
	var (
		limit  int
		by     string
		format string
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the best opportunities recorded in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if by == "" {
				by = a.cfg.Rank.By
			}
			if by != string(engine.RankByNetProfit) && by != string(engine.RankByScore) {
				return fmt.Errorf("%w: unknown rank key %q", engine.ErrConfiguration, by)
			}
			if format == "" {
				format = a.cfg.Output.Format
			}

			store, err := db.Open(a.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			records, err := store.TopOpportunities(cmd.Context(), limit, engine.RankBy(by))
			if err != nil {
				return err
			}
			if isJSON(format) {
				return report.WriteStoredJSON(cmd.OutOrStdout(), records)
			}
			return report.WriteStored(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "Number of opportunities to show")
	cmd.Flags().StringVar(&by, "by", "", "Order by net_profit or score")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table or json")
	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.Open(a.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			runs, err := store.GetHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.WriteHistory(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
