package commands

import (
	"errors"
	"fmt"
	"os"

	"roundsettle/pkg/evm"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// NewKeystoreCommand manages encrypted finalize signer keys.
func NewKeystoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keystore",
		Short: "Manage the finalize signer keystore",
	}
	cmd.AddCommand(newKeystoreNewCommand(), newKeystoreShowCommand())
	return cmd
}

func keystorePassword() (string, error) {
	password := os.Getenv("SIGNER_PASSWORD")
	if password == "" {
		return "", errors.New("SIGNER_PASSWORD must be set")
	}
	return password, nil
}

func newKeystoreNewCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a signer key and write it encrypted with SIGNER_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := keystorePassword()
			if err != nil {
				return err
			}
			km := evm.NewKeyManager(dir)
			key, err := km.GenerateKey()
			if err != nil {
				return err
			}
			path, err := km.SaveKeyStoreEntry(key, password)
			if err != nil {
				return err
			}
			fmt.Printf("address: %s\nkeystore: %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "keystore", "Keystore directory")
	return cmd
}

func newKeystoreShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Decrypt a keystore entry and print its address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := keystorePassword()
			if err != nil {
				return err
			}
			key, err := evm.NewKeyManager("").LoadKeyStoreFile(args[0], password)
			if err != nil {
				return err
			}
			fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
			return nil
		},
	}
}
