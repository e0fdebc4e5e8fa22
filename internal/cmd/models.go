package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waddleai/waddle-go/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List selectable models",
	Long: `List the models the proxy offers. When discovery fails, the built-in
fallback catalog is shown so there is always something to select.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		directory := models.NewDirectory(app.Client)
		for _, d := range directory.List(cmd.Context()) {
			marker := " "
			if d.ID == app.Config.DefaultModel {
				marker = "*"
			}
			fmt.Printf("%s %-30s %-10s in=%d out=%d\n", marker, d.ID, d.Family, d.MaxInputTokens, d.MaxOutputTokens)
		}
		return nil
	},
}
