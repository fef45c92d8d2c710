// Command docqa answers questions about your documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/metrics"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configDir, err := file.DefaultDir()
	if err != nil {
		return fmt.Errorf("resolve config directory: %w", err)
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		logger.Warn("invalid settings, using defaults where needed: %v", err)
	}

	store, err := openStore(ctx, settings.Storage, configDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store: %v", err)
		}
	}()

	aiServices := ai.Initialise(ctx, *settings)
	defer aiServices.Close()
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	chunkr, err := chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	if err != nil {
		logger.Warn("chunking settings rejected, using defaults: %v", err)
		if chunkr, err = chunker.New(); err != nil {
			return err
		}
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return fmt.Errorf("open prompts: %w", err)
	}

	pipelineMetrics := metrics.NewPrometheus("docqa")

	retriever := services.NewRetriever(store.Chunks(), aiServices.EmbeddingService, settings.Retrieval.TopK)
	ingestion := services.NewIngestionOrchestrator(store, chunkr, services.NewPageEstimators(), retriever,
		services.WithPipelineMetrics(pipelineMetrics),
		services.WithEmbedRetry(settings.Pipeline.EmbedRetryAttempts, settings.Pipeline.EmbedRetryDelay),
	)
	defer ingestion.Close()

	composer := services.NewAnswerComposer(aiServices.LLMService, prompts, settings.Generation)
	qa := services.NewQAService(store, retriever, composer,
		services.WithQAMetrics(pipelineMetrics),
		services.WithTopK(settings.Retrieval.TopK),
	)

	watchDir := settings.WatchDir
	if watchDir == "" {
		watchDir = filepath.Join(configDir, "inbox")
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Document:     services.NewDocumentService(store),
		Ingestion:    ingestion,
		QA:           qa,
		Retriever:    retriever,
		Scheduler:    services.NewScheduler(settings.Pipeline.EmbedSweepInterval, store, retriever),
		Settings:     settingsService,
		Loader:       normalisers.NewRegistry(plaintext.New(), markdown.New(), docx.New()),
		Metrics:      pipelineMetrics.Handler(),
		WatchDir:     watchDir,
		SweepEnabled: settings.Pipeline.EmbedSweepInterval > 0,
	})

	return cli.Execute(ctx)
}

// openStore opens the record store selected by the storage settings.
func openStore(ctx context.Context, cfg domain.StorageSettings, configDir string) (driven.RecordStore, error) {
	switch cfg.Driver {
	case domain.StorageDriverMemory:
		return memory.NewStore(), nil

	case domain.StorageDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: storage.dsn is required for postgres", domain.ErrInvalidInput)
		}
		store, err := postgres.NewStore(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil

	case domain.StorageDriverSQLite, "":
		dataDir := cfg.DSN
		if dataDir == "" {
			dataDir = filepath.Join(configDir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: storage driver %q", domain.ErrUnsupportedType, cfg.Driver)
	}
}
