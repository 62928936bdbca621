package shared

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ParseActiveFilter parses the active query parameter and returns a pointer to bool or nil
func ParseActiveFilter(c *gin.Context) *bool {
	activeStr := c.Query("active")
	if activeStr == "" {
		return nil
	}

	switch activeStr {
	case "true":
		return BoolPtr(true)
	case "false":
		return BoolPtr(false)
	default:
		return nil
	}
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// DayBounds returns the UTC start (inclusive) and end (exclusive) of the
// calendar day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := t.UTC().Truncate(24 * time.Hour)
	return start, start.Add(24 * time.Hour)
}
