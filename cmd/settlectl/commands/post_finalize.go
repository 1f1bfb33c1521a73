package commands

import (
	"github.com/spf13/cobra"
)

// NewPostFinalizeCommand runs vesting and liquidity lock setup.
func NewPostFinalizeCommand() *cobra.Command {
	var roundID uint64

	cmd := &cobra.Command{
		Use:   "post-finalize",
		Short: "Run post-finalize setup for one round or every pending round",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, bootstrapOptions())
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := commandContext(cmd)

			if roundID == 0 {
				summary, err := app.PostFinalize.RunOnce(ctx)
				if err != nil {
					return err
				}
				return printJSON(summary)
			}
			p, err := app.PostFinalize.RunRound(ctx, roundID)
			if p != nil {
				if perr := printJSON(p); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.Flags().Uint64Var(&roundID, "round", 0, "Round ID (default: every SUCCESS round not yet settled)")
	return cmd
}
