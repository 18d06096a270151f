package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// statusCmd reports the session state. Token values are never printed.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authorization status",
	Long: `Show whether a session exists, who it belongs to, and when the access
token expires. Token values are never displayed.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	status := a.auth.Status()

	switch status.State {
	case "authenticated":
		fmt.Println(text.FgGreen.Sprint("Authenticated"))
	case "expired":
		fmt.Println(text.FgYellow.Sprint("Session expired (will refresh on next use if a refresh token exists)"))
	default:
		fmt.Println(text.FgRed.Sprint("Not authenticated"))
		fmt.Println("Run 'artifex-mcp authorize' to sign in.")
		return nil
	}

	if status.UserEmail != "" {
		fmt.Printf("  User:          %s\n", status.UserEmail)
	}
	if status.OrganizationName != "" {
		org := status.OrganizationName
		if status.OrganizationSlug != "" {
			org = fmt.Sprintf("%s (%s)", org, status.OrganizationSlug)
		}
		fmt.Printf("  Organization:  %s\n", org)
	}
	if !status.ExpiresAt.IsZero() {
		fmt.Printf("  Token expires: %s (%s)\n",
			status.ExpiresAt.Format(time.RFC3339),
			humanizeExpiry(status.ExpiresAt),
		)
	}
	fmt.Printf("  Refresh token: %v\n", status.HasRefreshToken)
	fmt.Printf("  Session file:  %s\n", sessionPathForDisplay(a))
	return nil
}

func humanizeExpiry(expiresAt time.Time) string {
	d := time.Until(expiresAt).Round(time.Minute)
	if d <= 0 {
		return "expired"
	}
	return "in " + d.String()
}

func sessionPathForDisplay(a *app) string {
	if a.cfg.SessionPath != "" {
		return a.cfg.SessionPath
	}
	return "~/.config/artifex-mcp/session.enc"
}
