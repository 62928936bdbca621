package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/botdeck/botdeck/internal/models"
)

var (
	aggregateChatbotID string
	aggregateDate      string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute daily metrics",
	Long: `Run one metric rollup pass immediately.

Without flags this recomputes the trailing backfill window for every chatbot,
exactly like a scheduled run. With --chatbot and --date it recomputes a single
(chatbot, day) row.`,
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateChatbotID, "chatbot", "", "recompute for a single chatbot")
	aggregateCmd.Flags().StringVar(&aggregateDate, "date", "", "day to recompute (YYYY-MM-DD, defaults to today)")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if aggregateChatbotID == "" {
		if aggregateDate != "" {
			return fmt.Errorf("--date requires --chatbot")
		}
		fmt.Println("🔄 Rolling up daily metrics for all chatbots...")
		if err := sched.RunOnce(ctx); err != nil {
			return err
		}
		fmt.Println("✅ Rollup complete")
		return nil
	}

	day := time.Now().UTC()
	if aggregateDate != "" {
		parsed, err := time.Parse(models.MetricDate, aggregateDate)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", aggregateDate)
		}
		day = parsed
	}

	metric, err := metricsService.ComputeDailyMetric(ctx, aggregateChatbotID, day)
	if err != nil {
		return err
	}
	if metric == nil {
		fmt.Printf("No completed sessions for %s on %s, nothing stored.\n", aggregateChatbotID, day.Format(models.MetricDate))
		return nil
	}

	fmt.Printf("✅ %s %s: %d sessions, %d messages, %d unique users\n",
		metric.ChatbotID, metric.Date, metric.SessionCount, metric.MessageCount, metric.UniqueUsers)
	return nil
}
