package main

import (
	"fmt"
	"log"

	"roundsettle/cmd/settlectl/commands"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "settlectl",
		Short: "Operate round settlement from the command line",
		Long: `settlectl runs the settlement services directly against the configured database and
chains: schema migrations, contribution indexing, round finalization, post-finalize setup,
proof lookup and signer keystore management.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("use-memory", false, "Run against the in-memory ledger (nothing is persisted)")

	rootCmd.AddCommand(
		commands.NewMigrateCommand(),
		commands.NewIndexCommand(),
		commands.NewFinalizeCommand(),
		commands.NewPostFinalizeCommand(),
		commands.NewProofCommand(),
		commands.NewKeystoreCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
