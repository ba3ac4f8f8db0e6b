package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/existflow/tasksync/internal/api"
	"github.com/existflow/tasksync/internal/prefs"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Manage authentication with the sync server.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the sync server",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout from the sync server",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)

	loginCmd.Flags().String("email", "", "Email to log in with")
}

func runLogin(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	email, _ := cmd.Flags().GetString("email")
	email = strings.TrimSpace(email)
	if email == "" {
		// Prompt only when someone can answer
		if f, ok := cmd.InOrStdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			return errors.New("no email given: pass --email")
		}
		fmt.Fprint(out, "Email: ")
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return errors.New("email is required")
	}

	p, err := prefs.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	fmt.Fprintf(out, "🔄 Logging in to %s...\n", cfg.ServerURL)
	client := api.NewClient(cfg.ServerURL, nil, cfg.Sync.RequestTimeout)
	resp, err := client.Login(cmd.Context(), email)
	if err != nil {
		return err
	}

	if err := p.SaveUser(resp.User()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "✅ Logged in as %s\n", resp.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	p, err := prefs.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	if p.User() == nil {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	if err := p.ClearUser(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	fmt.Fprintln(out, "✅ Logged out successfully.")
	return nil
}
