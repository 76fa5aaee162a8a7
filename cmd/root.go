package cmd

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"grantdesk/client"
	"grantdesk/config"
	"grantdesk/model"
	"grantdesk/storage"
	"grantdesk/ui"
)

var (
	verbose  bool
	apiURL   string
	timeout  string
	grantID  string
	version  = "dev"
	settings *config.Config
)

// rootCmd opens the chat view when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "grantdesk",
	Short: "Terminal client for the SME grant assistant",
	Long: `Chat with the SME grant assistant from your terminal.

The assistant answers questions about government grants, looks things up in
the documents you upload and asks before it runs an action on your behalf.

Quick Start:
  grantdesk                              # Open the chat
  grantdesk --grant 12                   # Ask about one grant
  grantdesk ingest guidelines.pdf        # Add a document to the knowledge base
  grantdesk match profile.yaml           # Find grants for an SME profile`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		settings = cfg
		config.InitDebugLog(cfg.DataDir(), verbose)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write a debug log to <data_dir>/debug.log")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config and "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "", "Per-request timeout, e.g. 90s or 2m")
	rootCmd.Flags().StringVar(&grantID, "grant", "", "Open a Q&A session scoped to one grant")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadSettings reads the config files, then lets command line flags win.
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if timeout != "" {
		d, err := config.ParseTimeout(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	return cfg, nil
}

func newBackendClient() (*client.Client, error) {
	c, err := client.NewClient(settings.BackendURL(), client.WithTimeout(settings.RequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return c, nil
}

// openActivity opens the history database. Commands keep working without it.
func openActivity() *storage.ActivityStore {
	activity, err := storage.NewActivityStore(settings.DataDir())
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[CLI] Activity history unavailable: %v", err)
		}
		return nil
	}
	return activity
}

func runChat() error {
	backend, err := newBackendClient()
	if err != nil {
		return showStartupError("Configuration Error", err)
	}

	opts := []model.SessionOption{model.WithTimeout(settings.RequestTimeout)}
	if id := strings.TrimSpace(grantID); id != "" {
		opts = append(opts, model.WithGrant(id), model.WithGreeting(grantGreeting(settings.GrantGreeting, id)))
	} else {
		opts = append(opts, model.WithGreeting(settings.Greeting))
	}
	session := model.NewChatSession(backend, opts...)

	activity := openActivity()
	if activity != nil {
		defer activity.Close()
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[CLI] Starting chat (thread %s, backend %s, grant %q)", session.ID(), settings.BackendURL(), session.GrantID())
	}

	p := tea.NewProgram(
		ui.NewAppView(settings, session, activity),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running grantdesk: %w", err)
	}
	return nil
}

// grantGreeting fills the first %s in the configured greeting with the grant
// id. The greeting is user text, so no other verbs are interpreted.
func grantGreeting(greeting, id string) string {
	return strings.Replace(greeting, "%s", id, 1)
}

// showStartupError blocks on an error screen until the user dismisses it.
func showStartupError(title string, cause error) error {
	p := tea.NewProgram(
		ui.NewErrorModal(title, cause.Error()),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("%w (while showing: %v)", cause, err)
	}
	return cause
}
