package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Browse past conversations",
}

var conversationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations",
	Args:  cobra.NoArgs,
	RunE:  runConversationList,
}

var conversationShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Show the questions and answers of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationShow,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback [question-id] [helpful|unhelpful]",
	Short: "Rate an answer",
	Long:  `Marks an answer as helpful or unhelpful. Rating again replaces the earlier rating.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedback,
}

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and question counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	conversationCmd.AddCommand(conversationListCmd)
	conversationCmd.AddCommand(conversationShowCmd)
	rootCmd.AddCommand(conversationCmd)
	rootCmd.AddCommand(feedbackCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output stats as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runConversationList(cmd *cobra.Command, _ []string) error {
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	convs, err := qaService.Conversations(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(convs) == 0 {
		cmd.Println("No conversations yet.")
		return nil
	}

	for i := range convs {
		cmd.Printf("  %s  %s  %s\n", convs[i].ID, convs[i].UpdatedAt.Format(timeFormat), convs[i].Title)
	}
	return nil
}

func runConversationShow(cmd *cobra.Command, args []string) error {
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	questions, err := qaService.History(cmd.Context(), userID, args[0])
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		cmd.Printf("Q: %s\n", q.Text)
		cmd.Printf("A: %s\n", q.Answer)
		printCitations(cmd, q.Citations)
		rating := "unrated"
		if q.Helpful != nil {
			rating = "unhelpful"
			if *q.Helpful {
				rating = "helpful"
			}
		}
		cmd.Printf("   %s · %s · %s\n\n", q.ID, q.CreatedAt.Format(timeFormat), rating)
	}
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	var helpful bool
	switch strings.ToLower(args[1]) {
	case "helpful", "yes", "y", "up":
		helpful = true
	case "unhelpful", "no", "n", "down":
		helpful = false
	default:
		return fmt.Errorf("invalid rating %q: use helpful or unhelpful", args[1])
	}

	if err := qaService.Feedback(cmd.Context(), userID, args[0], helpful); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	cmd.Println("Feedback saved.")
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	stats, err := qaService.Stats(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Documents:        %d\n", stats.TotalDocuments)
	cmd.Printf("  completed:      %d\n", stats.CompletedDocuments)
	cmd.Printf("Embedded chunks:  %d\n", stats.EmbeddedChunks)
	cmd.Printf("Questions asked:  %d\n", stats.TotalQuestions)
	return nil
}
