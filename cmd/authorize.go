package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var authorizeForce bool

// authorizeCmd runs the browser-based OAuth flow from the terminal.
var authorizeCmd = &cobra.Command{
	Use:     "authorize",
	Aliases: []string{"login"},
	Short:   "Authorize with Artifex via the browser",
	Long: `Start the OAuth authorization flow: a browser window opens for you to
sign in to Artifex, and the resulting tokens are stored encrypted under
your home directory.

Examples:
  artifex-mcp authorize          # Authorize (no-op if already signed in)
  artifex-mcp authorize --force  # Discard the current session and re-authorize`,
	RunE: runAuthorize,
}

func init() {
	authorizeCmd.Flags().BoolVar(&authorizeForce, "force", false, "Discard the current session and authorize again")
	rootCmd.AddCommand(authorizeCmd)
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !authorizeForce {
		if status := a.auth.Status(); status.State == "authenticated" {
			fmt.Printf("Already authorized%s. Use --force to re-authorize.\n", identitySuffix(status.UserEmail, status.OrganizationName))
			return nil
		}
	}

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " Waiting for browser authorization..."
	spin.Start()

	if authorizeForce {
		err = a.auth.Reauthorize(ctx)
	} else {
		err = a.auth.Login(ctx)
	}
	spin.Stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, text.FgRed.Sprint("Authorization failed."))
		return err
	}

	status := a.auth.Status()
	fmt.Println(text.FgGreen.Sprintf("Authorization successful%s.", identitySuffix(status.UserEmail, status.OrganizationName)))
	return nil
}

func identitySuffix(email, org string) string {
	switch {
	case email != "" && org != "":
		return fmt.Sprintf(" as %s (%s)", email, org)
	case email != "":
		return " as " + email
	default:
		return ""
	}
}
