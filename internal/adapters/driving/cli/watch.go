package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/watcher"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest files dropped into a directory",
	Long: `Watches an inbox directory and ingests every supported file written
to it. Files already present are ingested on start. A file is ingested again
only when its content changes.

Without an argument the configured watch directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce,
		"how long a file must stay unchanged before it is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if fileLoader == nil {
		return errors.New("file loader not configured")
	}
	if documentService == nil || ingestionService == nil {
		return errors.New("ingestion services not configured")
	}

	dir := defaultWatchDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no watch directory given and none configured")
	}

	w, err := watcher.New(dir, userID, fileLoader, documentService, ingestionService,
		watcher.WithDebounce(watchDebounce),
		watcher.WithInitialScan(),
		watcher.WithOnIngest(func(doc *domain.Document) {
			cmd.Printf("  ingested %s -> %s\n", doc.Title, doc.ID)
		}),
	)
	if err != nil {
		return err
	}

	stop := startScheduler(cmd.Context())
	defer stop()

	cmd.Printf("Watching %s for %v files (Ctrl+C to stop)\n", w.Dir(), fileLoader.Extensions())
	if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
