package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waddleai/waddle-go/internal/log"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authenticated sessions",
}

func init() {
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authListCmd, authWhoamiCmd)
}

var authLoginCmd = &cobra.Command{
	Use:   "login <api-key>",
	Short: "Validate an API key and create a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		session, err := app.Sessions.Create(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}
		fmt.Printf("Signed in as %s (key %s)\n", session.AccountLabel, log.MaskAPIKey(session.Credential))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [session-id]",
	Short: "Remove a session and its stored credential",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			active, ok := app.Sessions.Active()
			if !ok {
				return fmt.Errorf("no active session")
			}
			id = active.ID
		}
		if err := app.Sessions.Remove(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		sessions := app.Sessions.List()
		if len(sessions) == 0 {
			fmt.Println("No sessions. Run `waddle auth login <api-key>`.")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s (account %d)\n", s.ID, s.AccountLabel, s.AccountID)
		}
		return nil
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Re-validate the active session and show its identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		active, ok := app.Sessions.Active()
		if !ok {
			return fmt.Errorf("no active session")
		}
		session, err := app.Sessions.Refresh(cmd.Context(), active.ID)
		if err != nil {
			return fmt.Errorf("session validation failed: %w", err)
		}
		fmt.Printf("%s (account %d)\n", session.AccountLabel, session.AccountID)
		return nil
	},
}
