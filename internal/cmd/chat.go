package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waddleai/waddle-go/internal/chat"
	"github.com/waddleai/waddle-go/internal/prompt"
)

func init() {
	chatCmd.Flags().StringP("model", "m", "", "Override the model for this turn")
	chatCmd.Flags().String("file", "", "Active file path to include as context")
	chatCmd.Flags().String("language", "", "Language of the active file")
	chatCmd.Flags().String("workspace", "", "Workspace name to include as context")
}

// printSink streams fragments straight to stdout.
type printSink struct{}

func (printSink) OnFragment(delta string) { fmt.Print(delta) }
func (printSink) OnComplete(string)       { fmt.Println() }

func (printSink) OnError(kind chat.ErrorKind, err error) {
	switch kind {
	case chat.ErrorKindAuth:
		fmt.Fprintln(os.Stderr, "Authentication failed. Run `waddle auth login <api-key>`.")
	case chat.ErrorKindRetryLater:
		fmt.Fprintf(os.Stderr, "The service is busy or unavailable: %v. Try again later.\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

var chatCmd = &cobra.Command{
	Use:   "chat <prompt>",
	Short: "Run one streaming chat turn",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			app.Config.DefaultModel = model
		}

		host := prompt.HostContext{}
		if ws, _ := cmd.Flags().GetString("workspace"); ws != "" {
			host.WorkspaceNames = []string{ws}
		}
		host.ActiveFile, _ = cmd.Flags().GetString("file")
		host.Language, _ = cmd.Flags().GetString("language")

		_, err = app.Orchestrator.Send(cmd.Context(), args[0], host, printSink{})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, context.Canceled):
			// User abort is not a failure.
			fmt.Fprintln(os.Stderr, "\nCancelled.")
			return nil
		default:
			// The sink already explained the failure; keep the exit status.
			return fmt.Errorf("chat turn failed")
		}
	},
}
