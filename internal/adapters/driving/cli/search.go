package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// snippetLength is the number of characters of each passage printed.
const snippetLength = 160

var (
	searchLimit     int
	searchDocuments []string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find passages similar to a query",
	Long: `Embeds the query and ranks your embedded chunks by cosine similarity.
No answer is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of passages")
	searchCmd.Flags().StringSliceVarP(&searchDocuments, "doc", "d", nil, "restrict to these document IDs")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchResult is the JSON form of a retrieved passage.
type searchResult struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkID    string  `json:"chunk_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retriever == nil {
		return errors.New("retriever not configured")
	}

	result, err := retriever.Search(cmd.Context(), driving.SearchRequest{
		Query:       args[0],
		UserID:      userID,
		DocumentIDs: searchDocuments,
		TopK:        searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchTable(cmd, result)
}

func outputSearchJSON(cmd *cobra.Command, result *domain.RetrievalResult) error {
	out := make([]searchResult, result.Len())
	for i := range result.Chunks {
		sc := &result.Chunks[i]
		out[i] = searchResult{
			DocumentID: sc.Chunk.DocumentID,
			Title:      sc.DocumentTitle,
			ChunkID:    sc.Chunk.ID,
			PageNumber: sc.Chunk.PageNumber,
			Score:      sc.Score,
			Text:       sc.Chunk.Text,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if result.IsEmpty() {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range result.Chunks {
		sc := &result.Chunks[i]
		cmd.Printf("  [%d] %s, page %d (%.2f)\n", i+1, sc.DocumentTitle, sc.Chunk.PageNumber, sc.Score)
		cmd.Printf("      %s\n", snippet(sc.Chunk.Text))
		cmd.Println()
	}
	return nil
}

// snippet flattens whitespace and truncates text for display.
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= snippetLength {
		return flat
	}
	return string(runes[:snippetLength-3]) + "..."
}
