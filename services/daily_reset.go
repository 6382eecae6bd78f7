package services

import (
	"log"

	"duel-reward-system/storage"
)

// DailyResetService replenishes play quotas at the configured wall-clock
// boundary by zeroing every account's play counter. Running it twice for
// the same boundary is harmless; a missed run only delays replenishment.
// Points are never touched.
type DailyResetService struct {
	store storage.Store
}

func NewDailyResetService(store storage.Store) *DailyResetService {
	return &DailyResetService{store: store}
}

func (s *DailyResetService) Run() error {
	if err := s.store.ResetAllPlays(); err != nil {
		return err
	}
	log.Println("🔄 Daily play counters reset")
	return nil
}
