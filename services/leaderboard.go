package services

import (
	"time"

	"duel-reward-system/models"
	"duel-reward-system/storage"
)

// LeaderboardService provides the read-only ranking views.
type LeaderboardService struct {
	store storage.Store
}

func NewLeaderboardService(store storage.Store) *LeaderboardService {
	return &LeaderboardService{store: store}
}

// DayWindow returns the [midnight, next midnight) range containing t in
// t's location. The today-filter is a real calendar-day comparison on the
// stored timestamp, never a textual prefix match.
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// TopAllTime ranks accounts by points descending, ties broken by user id.
func (s *LeaderboardService) TopAllTime(limit int) ([]models.Account, error) {
	return s.store.TopByPointsAllTime(limit)
}

// TopToday applies the same ordering to accounts whose last play falls
// within the current calendar day.
func (s *LeaderboardService) TopToday(limit int) ([]models.Account, error) {
	start, end := DayWindow(time.Now())
	return s.store.TopByPointsBetween(start, end, limit)
}
