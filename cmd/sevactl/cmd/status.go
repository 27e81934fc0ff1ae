package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display local session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, store, err := newSessionClient()
		if err != nil {
			return err
		}
		defer client.Close()
		defer store.Close()

		pterm.DefaultSection.Println("Session Status")
		pterm.Info.Printf("State: %s\n", client.State())

		if _, err := store.Load(); err != nil {
			pterm.Warning.Println("No credential stored; run `sevactl login`")
			return nil
		}
		pterm.Info.Println("Credential present in shared store")
		return nil
	},
}
