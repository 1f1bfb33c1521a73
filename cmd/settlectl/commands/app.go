package commands

import (
	"context"
	"encoding/json"
	"os"

	"roundsettle/internal/bootstrap"

	"github.com/spf13/cobra"
)

func bootstrapOptions() bootstrap.Options {
	return bootstrap.Options{}
}

func openApp(cmd *cobra.Command, opts bootstrap.Options) (*bootstrap.App, error) {
	useMemory, err := cmd.Flags().GetBool("use-memory")
	if err != nil {
		return nil, err
	}
	opts.UseMemory = useMemory
	return bootstrap.New(commandContext(cmd), "settlectl", opts)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
