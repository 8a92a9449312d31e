package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	keyloom "github.com/keyloom/keyloom-go"
)

func keygenCmd() *cobra.Command {
	var (
		algorithm string
		strength  int
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a device keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, err := keyloom.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			kp, err := keyloom.GenerateKeyPair(alg, strength)
			if err != nil {
				return err
			}

			fmt.Printf("algorithm:  %s\n", kp.Algorithm)
			fmt.Printf("strength:   %d bits\n", kp.Strength)
			fmt.Printf("public key: %s\n", kp.PublicKeyEncoded)
			fmt.Printf("private key (keep secret): %s\n", base64.RawURLEncoding.EncodeToString(kp.PrivateKey))
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(keyloom.AlgorithmHybrid), "wrap algorithm")
	cmd.Flags().IntVarP(&strength, "strength", "s", 0, "RSA modulus bits (ignored for KEM algorithms)")
	return cmd
}
