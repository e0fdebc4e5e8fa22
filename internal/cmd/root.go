package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/waddleai/waddle-go/internal/auth"
	"github.com/waddleai/waddle-go/internal/chat"
	"github.com/waddleai/waddle-go/internal/client"
	"github.com/waddleai/waddle-go/internal/config"
	"github.com/waddleai/waddle-go/internal/log"
	"github.com/waddleai/waddle-go/internal/secret"
	"github.com/waddleai/waddle-go/internal/usage"
)

func init() {
	rootCmd.PersistentFlags().StringP("data-dir", "D", "", "Custom waddle data directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")
	rootCmd.PersistentFlags().String("url", "", "Override the proxy base URL")

	rootCmd.AddCommand(
		chatCmd,
		authCmd,
		modelsCmd,
		usageCmd,
		memoryCmd,
		statusCmd,
	)
}

var rootCmd = &cobra.Command{
	Use:   "waddle",
	Short: "Chat with the WaddleAI proxy from your terminal",
	Long: `Waddle is the reference host for the WaddleAI client core. It talks to an
OpenAI-compatible WaddleAI proxy: authenticates API keys, discovers models,
streams chat completions, and reports usage.`,
	Example: `
	# Sign in with an API key
	waddle auth login wa-yourkey

	# One streaming chat turn
	waddle chat "Explain the use of context in Go"

	# List selectable models
	waddle models

	# Show usage for the last 7 days
	waddle usage --days 7
  `,
	SilenceUsage: true,
}

// App wires the client core behind the CLI host.
type App struct {
	Config       *config.Config
	Client       *client.Client
	Sessions     *auth.Manager
	Recorder     *usage.Recorder
	Orchestrator *chat.Orchestrator
}

// setupApp builds the composition root shared by all subcommands.
func setupApp(cmd *cobra.Command) (*App, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	debug, _ := cmd.Flags().GetBool("debug")
	urlOverride, _ := cmd.Flags().GetString("url")

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}
	if urlOverride != "" {
		cfg.BaseURL = urlOverride
	}
	log.Setup(cfg.LogFile(), debug || cfg.Debug)

	secrets := secret.NewFileStore(cfg.DataDir())
	state := auth.NewFileStateStore(cfg.DataDir() + "/sessions.json")

	var sessions *auth.Manager
	c := client.New(cfg.BaseURL,
		client.WithCredentialSource(func() (string, bool) {
			if sessions == nil {
				return "", false
			}
			return sessions.ActiveCredential()
		}),
		client.WithReauth(func(ctx context.Context) (string, error) {
			// The CLI host has no interactive credential prompt mid-request;
			// refreshing the active session picks up a rotated key.
			if sessions == nil {
				return "", client.ErrNoCredential
			}
			active, ok := sessions.Active()
			if !ok {
				return "", client.ErrNoCredential
			}
			refreshed, err := sessions.Refresh(ctx, active.ID)
			if err != nil {
				return "", err
			}
			return refreshed.Credential, nil
		}),
	)

	sessions, err = auth.NewManager(c, secrets, state)
	if err != nil {
		return nil, err
	}

	recorder := usage.NewRecorder()
	orchestrator := chat.NewOrchestrator(c, sessions.ActiveCredential, cfg, recorder)

	return &App{
		Config:       cfg,
		Client:       c,
		Sessions:     sessions,
		Recorder:     recorder,
		Orchestrator: orchestrator,
	}, nil
}

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
