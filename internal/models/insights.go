package models

// Insight models

// InsightTotals is aggregated from raw sessions (not DailyMetric rows) so a
// partial "today" is always reflected.
type InsightTotals struct {
	SessionCount int `json:"session_count"`
	MessageCount int `json:"message_count"`
	UniqueUsers  int `json:"unique_users"`
}

// ActiveUserCount ranks a user by total messages across their sessions.
type ActiveUserCount struct {
	UserID       string `json:"user_id" bson:"_id"`
	MessageCount int    `json:"message_count" bson:"message_count"`
}

// QueryCount ranks a literal user-message content by occurrence count.
type QueryCount struct {
	Content string `json:"content" bson:"_id"`
	Count   int    `json:"count" bson:"count"`
}

// Insights answers "how is chatbot X performing over the last D days".
// Totals and DailySeries are windowed by the request; TopActiveUsers and
// TopQueries are all-time.
type Insights struct {
	ChatbotID      string            `json:"chatbot_id"`
	Days           int               `json:"days"`
	Totals         InsightTotals     `json:"totals"`
	DailySeries    []*DailyMetric    `json:"daily_series"`
	TopActiveUsers []ActiveUserCount `json:"top_active_users"`
	TopQueries     []QueryCount      `json:"top_queries"`
}
