package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	keyloom "github.com/keyloom/keyloom-go"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <public-key>",
		Short: "Print the fingerprint of a self-describing public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := &keyloom.Device{PublicKey: args[0]}
			if _, err := device.KeyAlgorithm(); err != nil {
				return err
			}
			fmt.Println(device.Fingerprint())
			return nil
		},
	}
}
