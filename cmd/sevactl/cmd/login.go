package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the back office",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := loginEmail
		if email == "" {
			var err error
			email, err = pterm.DefaultInteractiveTextInput.Show("Email")
			if err != nil {
				return fmt.Errorf("read email: %w", err)
			}
		}
		password, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		client, store, err := newSessionClient()
		if err != nil {
			return err
		}
		defer client.Close()
		defer store.Close()

		profile, err := client.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		pterm.Success.Printf("Logged in as %s (%s)\n", profile.Username, profile.Role)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (prompted when omitted)")
}
