package main

import (
	"fmt"
	"os"

	"github.com/brainwash-news/newsdesk/internal/db"
	"github.com/brainwash-news/newsdesk/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	adminUsername string
	adminEmail    string
)

var createAdminCmd = &cobra.Command{
	Use:   "createadmin",
	Short: "Create an administrator account",
	Long: `Create a user with the admin role. The password is read from the terminal.

Examples:
  newsdesk createadmin --username alice --email alice@example.com`,
	Args: cobra.NoArgs,
	RunE: runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVarP(&adminUsername, "username", "u", "", "Admin username")
	createAdminCmd.Flags().StringVarP(&adminEmail, "email", "e", "", "Admin email (defaults to <username>@newsdesk.local)")
	_ = createAdminCmd.MarkFlagRequired("username")
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	fmt.Print("Password (again): ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	rt, err := server.Setup(cmd.Context())
	if err != nil {
		return err
	}

	user, err := db.CreateAdmin(rt.DB, adminUsername, adminEmail, string(password))
	if err != nil {
		return err
	}

	fmt.Printf("Admin %q created\n", user.Username)
	return nil
}
