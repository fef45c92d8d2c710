package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var (
	askDocuments    []string
	askConversation string
	askJSON         bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the passages most similar to the question and asks the
configured LLM to answer from them. The answer cites its sources.

Use --doc to restrict the question to specific documents and
--conversation to continue an earlier conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askDocuments, "doc", "d", nil, "restrict to these document IDs")
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "continue a conversation")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	resp, err := qaService.Ask(cmd.Context(), driving.AskRequest{
		Question:       strings.Join(args, " "),
		UserID:         userID,
		DocumentIDs:    askDocuments,
		ConversationID: askConversation,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(resp.Answer)
	if len(resp.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		printCitations(cmd, resp.Citations)
	}
	cmd.Println()
	cmd.Printf("Conversation: %s  Question: %s  (%s)\n",
		resp.ConversationID, resp.QuestionID, resp.ProcessingTime.Round(time.Millisecond))
	return nil
}

func printCitations(cmd *cobra.Command, citations []domain.Citation) {
	for i := range citations {
		c := &citations[i]
		cmd.Printf("  [%d] %s, page %d (%.2f)\n", i+1, c.DocumentTitle, c.PageNumber, c.Score)
	}
}
