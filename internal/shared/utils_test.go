package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:30 on the 21st local time is still the 20th in UTC.
	local := time.Date(2026, 8, 21, 2, 30, 0, 0, loc)

	start, end := DayBounds(local)
	require.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), end)
	require.Equal(t, time.UTC, start.Location())
}

func TestDayBoundsMidnight(t *testing.T) {
	midnight := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	start, end := DayBounds(midnight)
	require.Equal(t, midnight, start)
	require.Equal(t, midnight.Add(24*time.Hour), end)
}
