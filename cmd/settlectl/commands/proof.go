package commands

import (
	"roundsettle/internal/handlers/business"

	"github.com/spf13/cobra"
)

// NewProofCommand prints a beneficiary's Merkle proof.
func NewProofCommand() *cobra.Command {
	var (
		roundID uint64
		wallet  string
	)

	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Look up and verify a beneficiary's allocation proof",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, bootstrapOptions())
			if err != nil {
				return err
			}
			defer app.Close()

			view, err := business.LookupProof(commandContext(cmd), app.Ledger, roundID, wallet)
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}

	cmd.Flags().Uint64Var(&roundID, "round", 0, "Round ID")
	cmd.Flags().StringVar(&wallet, "wallet", "", "Beneficiary address")
	_ = cmd.MarkFlagRequired("round")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}
