package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ocean-news/internal/news"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	var clk news.Clock = New()
	before := time.Now().Add(-time.Second)
	got := clk.Now()
	after := time.Now().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after))
	require.Equal(t, got.Format("2006-01-02"), news.DayKey(got))
}
