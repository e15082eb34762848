package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/SealDrop/internal/keys"
)

func newKeygenCmd() *cobra.Command {
	var (
		algorithm string
		private   string
		public    string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a sealing key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			alg := keys.Algorithm(algorithm)
			if alg != keys.AlgorithmECDSA && alg != keys.AlgorithmRSA {
				return fmt.Errorf("unknown algorithm %q (want ecdsa or rsa)", algorithm)
			}
			if !force {
				for _, p := range []string{private, public} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists (use --force to overwrite)", p)
					}
				}
			}
			for _, p := range []string{private, public} {
				if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
					return fmt.Errorf("create key dir: %w", err)
				}
			}
			k, err := keys.Generate(alg)
			if err != nil {
				return err
			}
			if err := keys.WritePair(k, private, public); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s (%s, fingerprint %s)\n", private, public, alg, k.Public().Fingerprint())
			return nil
		},
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(keys.AlgorithmECDSA), "Key algorithm: ecdsa or rsa")
	cmd.Flags().StringVar(&private, "private", filepath.Join("keys", "private_key.pem"), "Private key output path")
	cmd.Flags().StringVar(&public, "public", filepath.Join("keys", "public_key.pem"), "Public key output path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}
