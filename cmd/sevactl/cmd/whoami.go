package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevasetu/backoffice/pkg/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the profile the server resolves for the current credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, store, err := newSessionClient()
		if err != nil {
			return err
		}
		defer client.Close()
		defer store.Close()

		profile, err := client.Profile(cmd.Context())
		if err != nil {
			if errors.Is(err, session.ErrUnauthenticated) {
				return fmt.Errorf("not logged in; run `sevactl login`")
			}
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS")
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			profile.ID, profile.Username, profile.Email, profile.Role, profile.Status)
		return w.Flush()
	},
}
