package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and discard the shared credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, store, err := newSessionClient()
		if err != nil {
			return err
		}
		defer client.Close()
		defer store.Close()

		if err := client.Logout(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("Logged out successfully")
		return nil
	},
}
