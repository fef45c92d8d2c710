package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive chat UI",
	Long: `Launch the interactive terminal UI for asking questions about your
documents.

Pick which documents to ask about, continue earlier conversations, and rate
answers as you go.

Controls:
  Enter    - Ask / Select
  Ctrl+Y   - Mark the last answer helpful
  Ctrl+X   - Mark the last answer not helpful
  Ctrl+N   - Start a new conversation
  Esc      - Back
  ?        - Toggle help
  q        - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatPorts builds the TUI ports from the configured services.
func chatPorts() (*tui.Ports, error) {
	if qaService == nil {
		return nil, errors.New("qa service not configured")
	}
	if documentService == nil {
		return nil, errors.New("document service not configured")
	}
	return &tui.Ports{
		QA:       qaService,
		Document: documentService,
	}, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports, err := chatPorts()
	if err != nil {
		return err
	}

	app, err := tui.NewApp(ports, userID)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	// The chat session is long-running, so the embedding sweep runs alongside it
	stop := startScheduler(cmd.Context())
	defer stop()

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
