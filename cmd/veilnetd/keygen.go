package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veilnet/veilnet/pkg/nodekey"
)

var keygenOutput string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new RSA-4096 node identity key",
	Long: `Generate a fresh RSA-4096 key pair for a node's signing and
encryption identity and write it as PEM, matching the format
PRIVATE_KEY_FILE/serve expect.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenOutput, "output", "o", "", "output file (default: stdout)")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, err := nodekey.Generate()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	pem, err := key.PrivateKeyPEM()
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	if keygenOutput == "" {
		_, err := cmd.OutOrStdout().Write(pem)
		return err
	}
	if err := os.WriteFile(keygenOutput, pem, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keygenOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote node identity key to %s\n", keygenOutput)
	return nil
}
