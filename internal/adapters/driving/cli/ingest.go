package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// maxParallelIngest bounds how many files are extracted at once.
const maxParallelIngest = 4

var ingestWait bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Add documents and process them",
	Long: `Extracts the text of each file, registers it as a document and
splits it into chunks. Embedding runs in the background; use --wait=false
to return as soon as chunking has finished. Unembedded chunks are picked up
by the embedding sweep.

Supported formats: .txt, .md, .markdown, .docx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var processCmd = &cobra.Command{
	Use:   "process [doc-id]",
	Short: "Process a pending document",
	Long:  `Chunks a document that is still pending and embeds its chunks.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var embedCmd = &cobra.Command{
	Use:   "embed [doc-id]",
	Short: "Embed chunks that have no embedding yet",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmbed,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWait, "wait", true, "wait for embedding to finish")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(embedCmd)
}

// ingestOutcome is the result of ingesting one file.
type ingestOutcome struct {
	path string
	doc  *domain.Document
	err  error
}

func runIngest(cmd *cobra.Command, args []string) error {
	if fileLoader == nil {
		return errors.New("file loader not configured")
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()
	outcomes := make([]ingestOutcome, len(args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelIngest)
	for i, path := range args {
		g.Go(func() error {
			doc, err := ingestFile(gctx, path)
			outcomes[i] = ingestOutcome{path: path, doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-file errors are collected in outcomes

	if ingestWait {
		ingestionService.Wait()
	}

	failed := 0
	for i := range outcomes {
		o := &outcomes[i]
		if o.err != nil {
			failed++
			cmd.Printf("  FAILED %s: %v\n", o.path, o.err)
			continue
		}
		cmd.Printf("  %s -> %s\n", o.path, o.doc.ID)
		if status := ingestionService.Status(o.doc.ID); status != nil {
			cmd.Printf("    %s\n", formatJobStatus(status))
		}
	}

	cmd.Printf("\nIngested %d of %d files.\n", len(args)-failed, len(args))
	if failed > 0 {
		return fmt.Errorf("%d files failed to ingest", failed)
	}
	return nil
}

// ingestFile extracts, registers and chunks one file.
func ingestFile(ctx context.Context, path string) (*domain.Document, error) {
	result, err := fileLoader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	doc, err := documentService.Register(ctx, driving.NewDocument{
		UserID:    userID,
		Title:     result.Title,
		FileType:  result.FileType,
		Text:      result.Text,
		PageCount: result.PageCount,
	})
	if err != nil {
		return nil, fmt.Errorf("registering document: %w", err)
	}

	if err := ingestionService.Process(ctx, doc.ID); err != nil {
		return doc, fmt.Errorf("processing document %s: %w", doc.ID, err)
	}
	return doc, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()
	doc, err := documentService.Get(ctx, userID, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if err := ingestionService.Process(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to process document: %w", err)
	}
	ingestionService.Wait()

	cmd.Printf("Processed %s (%s)\n", documentTitle(doc), doc.ID)
	if status := ingestionService.Status(doc.ID); status != nil {
		cmd.Printf("  %s\n", formatJobStatus(status))
	}
	return nil
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if retriever == nil {
		return errors.New("retriever not configured")
	}

	ctx := cmd.Context()
	doc, err := documentService.Get(ctx, userID, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	summary, err := retriever.EmbedPendingChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	cmd.Printf("Embedded %d of %d pending chunks for %s.\n",
		summary.Embedded, summary.Attempted, documentTitle(doc))
	for _, f := range summary.Failures {
		cmd.Printf("  FAILED chunk %d: %v\n", f.ChunkIndex, f.Err)
	}
	return nil
}

func formatJobStatus(status *driving.JobStatus) string {
	parts := []string{
		"stage: " + status.Stage,
		fmt.Sprintf("chunks: %d", status.ChunksCreated),
		fmt.Sprintf("embedded: %d", status.ChunksEmbedded),
	}
	if status.LastError != "" {
		parts = append(parts, "error: "+status.LastError)
	}
	return strings.Join(parts, ", ")
}
