package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	keyloom "github.com/keyloom/keyloom-go"
)

func inspectBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-backup <file>",
		Short: "Validate a backup blob header without decrypting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			backup, err := keyloom.InspectBackup(blob)
			if err != nil {
				return err
			}

			fmt.Printf("version:     %d\n", backup.Version)
			fmt.Printf("user:        %s\n", backup.UserID)
			fmt.Printf("exported at: %s\n", backup.ExportedAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}
