// Package commands implements the keyloomctl utility: local keypair
// generation, public key fingerprinting, and backup blob inspection.
package commands

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	root := &cobra.Command{
		Use:           "keyloomctl",
		Short:         "Key management utility for keyloom",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(keygenCmd(), fingerprintCmd(), inspectBackupCmd())
	return root.Execute()
}
