package cli

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// Fixture documents seeded by setupTestServices.
const (
	testRefundDocID   = "doc-refunds"
	testShippingDocID = "doc-shipping"
	testAnswer        = "Refunds are issued within 30 days [Source 1]."
)

// testStore is the store behind the services installed by setupTestServices.
var testStore *memory.Store

// cannedLLM answers every prompt with testAnswer.
type cannedLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (l *cannedLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	return testAnswer, nil
}

func (l *cannedLLM) ModelName() string            { return "canned" }
func (l *cannedLLM) Ping(_ context.Context) error { return nil }
func (l *cannedLLM) Close() error                 { return nil }

var _ driven.LLMService = (*cannedLLM)(nil)

// setupTestServices wires the real services over an in-memory store, seeds
// two processed documents for the default user and returns a cleanup func.
func setupTestServices() func() {
	ctx := context.Background()
	store := memory.NewStore()

	chunkr, err := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	if err != nil {
		panic(err)
	}

	embedder := hashing.NewEmbeddingService(64)
	retr := services.NewRetriever(store.Chunks(), embedder, domain.DefaultTopK)
	ingestion := services.NewIngestionOrchestrator(store, chunkr, services.NewPageEstimators(), retr,
		services.WithEmbedRetry(1, time.Millisecond))
	composer := services.NewAnswerComposer(&cannedLLM{}, nil, domain.GenerationSettings{Temperature: 0.2})
	qa := services.NewQAService(store, retr, composer)
	sched := services.NewScheduler(time.Hour, store, retr)

	seed := []domain.Document{
		{
			ID:            testRefundDocID,
			UserID:        defaultUser,
			Title:         "Refund Policy",
			FileType:      domain.FileTypeText,
			ExtractedText: "Refunds are issued within 30 days of the return being received.",
		},
		{
			ID:            testShippingDocID,
			UserID:        defaultUser,
			Title:         "Shipping Guide",
			FileType:      domain.FileTypeMarkdown,
			ExtractedText: "Orders ship within two business days by standard courier.",
		},
	}
	for i := range seed {
		doc := seed[i]
		doc.State = domain.StatePending
		doc.CreatedAt = time.Now()
		doc.UpdatedAt = doc.CreatedAt
		if err := store.Documents().Save(ctx, &doc); err != nil {
			panic(err)
		}
		if err := ingestion.Process(ctx, doc.ID); err != nil {
			panic(err)
		}
	}
	ingestion.Wait()

	testStore = store
	SetServices(Services{
		Document:  services.NewDocumentService(store),
		Ingestion: ingestion,
		QA:        qa,
		Retriever: retr,
		Scheduler: sched,
		Settings:  services.NewSettingsService(memory.NewConfigStore()),
		Loader:    normalisers.NewRegistry(plaintext.New(), markdown.New()),
	})

	return func() {
		_ = ingestion.Close()
		testStore = nil
		SetServices(Services{})
	}
}

// setCommandContext sets ctx on cmd and every command below it. Cobra only
// hands the root context to a subcommand whose context is still nil, so a
// command run by an earlier test would otherwise keep that test's context.
func setCommandContext(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setCommandContext(ctx, sub)
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	setCommandContext(context.Background(), rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
