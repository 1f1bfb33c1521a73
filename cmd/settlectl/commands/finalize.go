package commands

import (
	"fmt"
	"strings"

	"roundsettle/internal/handlers/business"
	"roundsettle/internal/models"

	"github.com/spf13/cobra"
)

// NewFinalizeCommand finalizes one ended round on chain and in the ledger.
func NewFinalizeCommand() *cobra.Command {
	var (
		roundID uint64
		key     string
		expect  string
		reason  string
	)

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Finalize an ended round",
		Long: `Finalize reads the round's on-chain state, builds the settlement and submits
finalizeSuccess or finalizeFailed. Re-running with the same --key returns the recorded
outcome; a call interrupted after broadcast resumes from the stored transaction.`,
		Example: `  settlectl finalize --round 12 --key ops-2024-06-01
  settlectl finalize --round 12 --key retry-1 --expect FAILED --reason "soft cap not reached"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := business.FinalizeInput{
				RoundID:        roundID,
				IdempotencyKey: key,
				Reason:         reason,
			}
			switch strings.ToUpper(expect) {
			case "":
			case string(models.RoundResultSuccess):
				in.Expect = models.RoundResultSuccess
			case string(models.RoundResultFailed):
				in.Expect = models.RoundResultFailed
			default:
				return fmt.Errorf("--expect must be SUCCESS or FAILED, got %q", expect)
			}

			opts := bootstrapOptions()
			opts.RequireSigner = true
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			out, err := app.Finalizer.Finalize(commandContext(cmd), in)
			if err != nil {
				return fmt.Errorf("%s: %w", business.ErrorKind(err), err)
			}
			return printJSON(out)
		},
	}

	cmd.Flags().Uint64Var(&roundID, "round", 0, "Round ID")
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key for this finalize call")
	cmd.Flags().StringVar(&expect, "expect", "", "Reject the call unless the chain implies this result (SUCCESS or FAILED)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason sent with finalizeFailed")
	_ = cmd.MarkFlagRequired("round")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
