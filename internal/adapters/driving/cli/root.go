// Package cli provides the docqa command line interface.
package cli

import (
	"context"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// defaultUser owns documents when neither --user nor DOCQA_USER is set.
const defaultUser = "local"

// FileLoader reads a file from disk and extracts its text.
type FileLoader interface {
	Supports(path string) bool
	Extensions() []string
	Load(ctx context.Context, path string) (*driven.NormaliseResult, error)
}

// Services holds the core services the commands drive.
type Services struct {
	Document  driving.DocumentService
	Ingestion driving.IngestionService
	QA        driving.QAService
	Retriever driving.Retriever
	Scheduler driving.Scheduler
	Settings  driving.SettingsService
	Loader    FileLoader

	// Metrics serves Prometheus metrics next to the MCP HTTP endpoint.
	Metrics http.Handler

	// WatchDir is the default inbox for the watch command.
	WatchDir string

	// SweepEnabled starts the scheduler in long-running commands.
	SweepEnabled bool
}

var (
	version = "dev"

	// Global flags.
	userID  string
	verbose bool

	documentService  driving.DocumentService
	ingestionService driving.IngestionService
	qaService        driving.QAService
	retriever        driving.Retriever
	scheduler        driving.Scheduler
	settingsService  driving.SettingsService
	fileLoader       FileLoader
	metricsHandler   http.Handler
	defaultWatchDir  string
	sweepEnabled     bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa ingests documents, splits them into overlapping chunks, embeds
them and answers questions grounded in the most similar passages.

Answers cite the documents and pages they were drawn from.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", envUser(), "user that owns documents and conversations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func envUser() string {
	if u := os.Getenv("DOCQA_USER"); u != "" {
		return u
	}
	return defaultUser
}

// SetServices configures the services used by every command.
func SetServices(s Services) {
	documentService = s.Document
	ingestionService = s.Ingestion
	qaService = s.QA
	retriever = s.Retriever
	scheduler = s.Scheduler
	settingsService = s.Settings
	fileLoader = s.Loader
	metricsHandler = s.Metrics
	defaultWatchDir = s.WatchDir
	sweepEnabled = s.SweepEnabled
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// startScheduler runs the scheduler in the background for long-running
// commands. The returned function stops it.
func startScheduler(ctx context.Context) func() {
	if !sweepEnabled || scheduler == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("scheduler stopped: %v", err)
		}
	}()

	return func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler stop: %v", err)
		}
		cancel()
		<-done
	}
}

// documentTitle returns the title, falling back to the ID.
func documentTitle(doc *domain.Document) string {
	if doc.Title == "" {
		return doc.ID
	}
	return doc.Title
}
