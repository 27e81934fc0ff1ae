package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevasetu/backoffice/pkg/session"
)

var (
	serverURL string
	dataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "sevactl",
	Short: "Back-office CLI - session and account client",
	Long: `sevactl is the command-line client for the back-office API.
It keeps a shared credential on disk, so every sevactl invocation and any
other local client pointed at the same directory reuse one session.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "back-office API server URL")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "credential directory (default ~/.sevasetu)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
}

// newSessionClient builds the session client over the shared file store.
// The caller must Close both.
func newSessionClient() (*session.Client, *session.FileStore, error) {
	store, err := session.NewFileStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}
	return session.NewClient(serverURL, store), store, nil
}
