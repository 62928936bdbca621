package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var insightsDays int

var insightsCmd = &cobra.Command{
	Use:   "insights <chatbot-id>",
	Short: "Show chatbot usage insights",
	Long:  `Display session totals, the daily metric series and the all-time top users and queries for one chatbot.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInsights,
}

func init() {
	insightsCmd.Flags().IntVar(&insightsDays, "days", 0, "window size in days (default 7)")
}

func runInsights(cmd *cobra.Command, args []string) error {
	insights, err := insightsService.GetInsights(context.Background(), args[0], insightsDays)
	if err != nil {
		return err
	}

	fmt.Println(FormatHeader(fmt.Sprintf("📊 Insights for %s (last %d days)", insights.ChatbotID, insights.Days)))
	fmt.Println()

	fmt.Println(FormatTitle("Totals"))
	fmt.Println(FormatCountLabel("  Sessions:", insights.Totals.SessionCount))
	fmt.Println(FormatCountLabel("  Messages:", insights.Totals.MessageCount))
	fmt.Println(FormatCountLabel("  Unique users:", insights.Totals.UniqueUsers))
	fmt.Println()

	fmt.Println(FormatTitle("Daily metrics"))
	if len(insights.DailySeries) == 0 {
		fmt.Println(FormatDim("  (no rollups in this window yet)"))
	}
	for _, day := range insights.DailySeries {
		fmt.Printf("  %s  %s sessions, %s messages, avg %.1f msg/session, avg %s/session\n",
			FormatLabel(day.Date),
			FormatCount(day.SessionCount),
			FormatCount(day.MessageCount),
			day.AvgMessagesPerSession,
			formatSeconds(day.AvgSessionDurationSeconds))
	}
	fmt.Println()

	fmt.Println(FormatTitle("Top users"))
	if len(insights.TopActiveUsers) == 0 {
		fmt.Println(FormatDim("  (no identified users yet)"))
	}
	for i, user := range insights.TopActiveUsers {
		fmt.Printf("  %d. %s %s\n", i+1, FormatValue(user.UserID), FormatMeta(fmt.Sprintf("(%d messages)", user.MessageCount)))
	}
	fmt.Println()

	fmt.Println(FormatTitle("Top queries"))
	if len(insights.TopQueries) == 0 {
		fmt.Println(FormatDim("  (no user messages yet)"))
	}
	for i, query := range insights.TopQueries {
		fmt.Printf("  %d. %s %s\n", i+1, FormatValue(truncate(query.Content, 60)), FormatMeta(fmt.Sprintf("(x%d)", query.Count)))
	}

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatSeconds(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.0fs", seconds)
	}
	return fmt.Sprintf("%.1fm", seconds/60)
}
