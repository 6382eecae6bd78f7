package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"duel-reward-system/models"
	"duel-reward-system/storage"
)

// Storage is an in-process implementation of storage.Store. It backs local
// development runs and the service tests; semantics mirror the Postgres
// implementation, including the conditional play commit and the unique
// grant-pair constraint.
type Storage struct {
	mu sync.Mutex

	accounts map[int64]*models.Account
	grants   map[grantKey]*models.InviteRewardGrant
	history  []models.GameHistoryEntry
}

type grantKey struct {
	inviterID int64
	inviteeID int64
}

var _ storage.Store = (*Storage)(nil)

// New creates an empty in-memory store.
func New() *Storage {
	return &Storage{
		accounts: make(map[int64]*models.Account),
		grants:   make(map[grantKey]*models.InviteRewardGrant),
	}
}

func copyAccount(a *models.Account) *models.Account {
	cp := *a
	return &cp
}

// --- Account operations ---

func (s *Storage) Account(userID int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	return copyAccount(acc), nil
}

func (s *Storage) CreateAccountIfAbsent(acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.UserID]; ok {
		return nil
	}
	cp := *acc
	if cp.InvitedBy != nil && *cp.InvitedBy == cp.UserID {
		cp.InvitedBy = nil
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.accounts[cp.UserID] = &cp
	return nil
}

func (s *Storage) SetPhoneToken(userID int64, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	acc.Phone = &phone
	return nil
}

func (s *Storage) ApplyPlayResult(userID int64, delta int, maxPlays int, playedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return 0, storage.ErrAccountNotFound
	}
	if acc.Plays >= maxPlays {
		return 0, storage.ErrQuotaExhausted
	}
	acc.Points += int64(delta)
	acc.Plays++
	t := playedAt
	acc.LastPlay = &t
	return acc.Points, nil
}

func (s *Storage) ResetAllPlays() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		acc.Plays = 0
	}
	return nil
}

func (s *Storage) AddPoints(userID int64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	acc.Points += delta
	return nil
}

func (s *Storage) SetAccountFields(userID int64, points int64, plays int, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	acc.Points = points
	acc.Plays = plays
	acc.Blocked = blocked
	return nil
}

func (s *Storage) DeleteAccount(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, userID)
	return nil
}

func (s *Storage) ListAccounts(keyword string, page, perPage int) ([]models.Account, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matches := func(a *models.Account) bool {
		if keyword == "" {
			return true
		}
		kw := strings.ToLower(keyword)
		if a.Username != nil && strings.Contains(strings.ToLower(*a.Username), kw) {
			return true
		}
		if a.Phone != nil && strings.Contains(strings.ToLower(*a.Phone), kw) {
			return true
		}
		return false
	}

	var all []models.Account
	for _, acc := range s.accounts {
		if matches(acc) {
			all = append(all, *acc)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].UserID < all[j].UserID
	})

	total := int64(len(all))
	start := (page - 1) * perPage
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *Storage) Stats() (*storage.AccountStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &storage.AccountStats{}
	for _, acc := range s.accounts {
		stats.TotalUsers++
		if acc.Authorized() {
			stats.AuthorizedUsers++
		}
		if acc.Blocked {
			stats.BlockedUsers++
		}
		stats.TotalPoints += acc.Points
	}
	return stats, nil
}

// --- Invite reward grant operations ---

func (s *Storage) Grant(inviterID, inviteeID int64) (*models.InviteRewardGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantKey{inviterID, inviteeID}]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (s *Storage) CreateGrant(g *models.InviteRewardGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := grantKey{g.InviterID, g.InviteeID}
	if _, ok := s.grants[key]; ok {
		return storage.ErrGrantExists
	}
	cp := *g
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.grants[key] = &cp
	return nil
}

func (s *Storage) ClaimGrant(inviterID, inviteeID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantKey{inviterID, inviteeID}]
	if !ok || g.Granted {
		return false, nil
	}
	g.Granted = true
	t := at
	g.GrantedAt = &t
	return true, nil
}

// --- Game history operations ---

func (s *Storage) AppendHistory(e *models.GameHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	s.history = append(s.history, cp)
	return nil
}

func (s *Storage) ListHistory(userID *int64, page, perPage int) ([]models.GameHistoryEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.GameHistoryEntry
	for _, e := range s.history {
		if userID == nil || e.UserID == *userID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].PlayedAt.After(all[j].PlayedAt)
	})

	total := int64(len(all))
	start := (page - 1) * perPage
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *Storage) HistoryBetween(start, end time.Time) ([]models.GameHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GameHistoryEntry
	for _, e := range s.history {
		if !e.PlayedAt.Before(start) && e.PlayedAt.Before(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PlayedAt.Before(out[j].PlayedAt)
	})
	return out, nil
}

// --- Leaderboard views ---

func (s *Storage) topByPoints(limit int, include func(*models.Account) bool) []models.Account {
	var out []models.Account
	for _, acc := range s.accounts {
		if include(acc) {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Storage) TopByPointsAllTime(limit int) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topByPoints(limit, func(*models.Account) bool { return true }), nil
}

func (s *Storage) TopByPointsBetween(start, end time.Time, limit int) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topByPoints(limit, func(a *models.Account) bool {
		return a.LastPlay != nil && !a.LastPlay.Before(start) && a.LastPlay.Before(end)
	}), nil
}
