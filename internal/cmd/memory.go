package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage server-side conversation memory",
}

func init() {
	memoryCmd.AddCommand(memoryClearCmd)
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset conversation memory for this client session",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		if err := app.Client.ClearMemory(cmd.Context()); err != nil {
			return err
		}
		app.Orchestrator.Reset()
		fmt.Println("Conversation memory cleared.")
		return nil
	},
}
