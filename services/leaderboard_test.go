package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duel-reward-system/models"
	"duel-reward-system/storage/memory"
)

func TestDayWindow(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	at := time.Date(2026, 8, 31, 17, 45, 12, 0, loc)

	start, end := DayWindow(at)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, loc), end)
}

func seedWithLastPlay(t *testing.T, store *memory.Storage, userID int64, points int64, lastPlay *time.Time) {
	t.Helper()
	acc := &models.Account{
		UserID:   userID,
		Points:   points,
		LastPlay: lastPlay,
	}
	require.NoError(t, store.CreateAccountIfAbsent(acc))
}

func TestTopAllTimeOrdering(t *testing.T) {
	store := memory.New()
	seedWithLastPlay(t, store, 1, 5, nil)
	seedWithLastPlay(t, store, 2, 30, nil)
	seedWithLastPlay(t, store, 3, 30, nil)
	seedWithLastPlay(t, store, 4, -10, nil)

	lb := NewLeaderboardService(store)

	rows, err := lb.TopAllTime(3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Points descending, ties broken by a stable order (user id).
	assert.Equal(t, int64(2), rows[0].UserID)
	assert.Equal(t, int64(3), rows[1].UserID)
	assert.Equal(t, int64(1), rows[2].UserID)
}

func TestTopTodayUsesCalendarDayBoundary(t *testing.T) {
	store := memory.New()
	start, end := DayWindow(time.Now())

	justBeforeMidnight := start.Add(-time.Minute)
	earlyToday := start.Add(time.Minute)
	lateToday := end.Add(-time.Minute)

	seedWithLastPlay(t, store, 1, 100, &justBeforeMidnight) // yesterday: excluded
	seedWithLastPlay(t, store, 2, 20, &earlyToday)
	seedWithLastPlay(t, store, 3, 50, &lateToday)
	seedWithLastPlay(t, store, 4, 999, nil) // never played: excluded

	lb := NewLeaderboardService(store)

	rows, err := lb.TopToday(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].UserID)
	assert.Equal(t, int64(2), rows[1].UserID)
}
