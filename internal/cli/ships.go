package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/report"
)

func newShipsCommand(a *app) *cobra.Command {
	var (
		volume   float64
		itemID   int32
		quantity int64
	)
	cmd := &cobra.Command{
		Use:   "ships <from> <to>",
		Short: "Compare cargo ships for one haul between two hubs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, ok := a.tables.Hub(args[0])
			if !ok {
				return fmt.Errorf("%w: unknown hub %q", engine.ErrConfiguration, args[0])
			}
			to, ok := a.tables.Hub(args[1])
			if !ok {
				return fmt.Errorf("%w: unknown hub %q", engine.ErrConfiguration, args[1])
			}
			if itemID != 0 {
				item, ok := a.tables.Item(itemID)
				if !ok {
					return fmt.Errorf("%w: unknown item type %d", engine.ErrConfiguration, itemID)
				}
				volume = item.Volume * float64(quantity)
			}
			if volume <= 0 {
				return fmt.Errorf("%w: --volume or --item with --quantity is required", engine.ErrConfiguration)
			}

			model := engine.NewDetailedCostModel(a.tables, a.cfg.Timing())
			quotes := model.CompareShips(from.Name, to.Name, volume)
			t := a.tables.Route(from.Name, to.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %.1f ly, %s m³\n\n", from.Name, to.Name, t.DistanceLY, report.ISK(volume))
			return report.WriteShips(cmd.OutOrStdout(), quotes, volume)
		},
	}
	cmd.Flags().Float64Var(&volume, "volume", 0, "Cargo volume in m³")
	cmd.Flags().Int32Var(&itemID, "item", 0, "Item type ID (volume = item volume x quantity)")
	cmd.Flags().Int64Var(&quantity, "quantity", 1, "Units of --item")
	return cmd
}
