package commands

import (
	"github.com/spf13/cobra"
)

// NewIndexCommand scans contribution events for one round or for every indexable round.
func NewIndexCommand() *cobra.Command {
	var (
		roundID uint64
		since   uint64
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index contribution events into the ledger",
		Example: `  settlectl index
  settlectl index --round 12 --since 18000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, bootstrapOptions())
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := commandContext(cmd)

			if roundID != 0 {
				var sinceBlock *uint64
				if cmd.Flags().Changed("since") {
					sinceBlock = &since
				}
				res, err := app.Indexer.IndexRound(ctx, roundID, sinceBlock)
				if err != nil {
					return err
				}
				return printJSON(res)
			}

			activated, ended, err := app.Sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			results, err := app.Indexer.IndexAll(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"activated": activated,
				"ended":     ended,
				"results":   results,
			})
		},
	}

	cmd.Flags().Uint64Var(&roundID, "round", 0, "Round ID (default: every active or ended round)")
	cmd.Flags().Uint64Var(&since, "since", 0, "Start block override; never lowers the stored checkpoint")
	return cmd
}
