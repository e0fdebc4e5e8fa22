package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Test the connection to the proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		if err := app.Client.Health(cmd.Context()); err != nil {
			return fmt.Errorf("proxy at %s is not reachable: %w", app.Config.BaseURL, err)
		}
		fmt.Printf("Proxy at %s is healthy.\n", app.Config.BaseURL)
		if active, ok := app.Sessions.Active(); ok {
			fmt.Printf("Active session: %s\n", active.AccountLabel)
		} else {
			fmt.Println("Not signed in.")
		}
		return nil
	},
}
