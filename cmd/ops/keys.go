// AngelaMos | 2026
// keys.go

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repuestospro/backend/internal/auth"
)

func newKeysCmd(_ *app) *cobra.Command {
	var privatePath, publicPath string
	var overwrite bool

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Write a new ES256 key pair for signing access tokens",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if !overwrite {
				if _, err := os.Stat(privatePath); err == nil {
					return fmt.Errorf("%s already exists, pass --overwrite to replace it", privatePath)
				}
			}
			for _, p := range []string{privatePath, publicPath} {
				if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
					return fmt.Errorf("create key directory: %w", err)
				}
			}
			if err := auth.GenerateKeyPair(privatePath, publicPath); err != nil {
				return err
			}
			fmt.Printf("wrote %s and %s\n", privatePath, publicPath)
			return nil
		},
	}
	generate.Flags().StringVar(&privatePath, "private", "keys/private.pem", "private key output path")
	generate.Flags().StringVar(&publicPath, "public", "keys/public.pem", "public key output path")
	generate.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing keys")

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage JWT signing keys",
		// Key generation must work before a config exists.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(generate)

	return cmd
}
