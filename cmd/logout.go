package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logoutCmd revokes the current token best-effort and clears the local
// session. Revocation failure never blocks local deletion.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the current session and clear stored tokens",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.auth.Logout(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Logged out. Stored session cleared.")
	return nil
}
