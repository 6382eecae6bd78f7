package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duel-reward-system/models"
	"duel-reward-system/storage"
)

// Storage implements storage.Store on top of gorm/Postgres.
type Storage struct {
	db *gorm.DB
}

var _ storage.Store = (*Storage)(nil)

// Open connects to Postgres, runs migrations and returns the store.
// TranslateError is required: CreateGrant depends on unique-violation
// errors surfacing as gorm.ErrDuplicatedKey.
func Open(dsn string) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.InviteRewardGrant{},
		&models.GameHistoryEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// New wraps an already-open gorm handle. The handle must have been opened
// with TranslateError enabled.
func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// --- Account operations ---

func (s *Storage) Account(userID int64) (*models.Account, error) {
	var acc models.Account
	if err := s.db.First(&acc, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *Storage) CreateAccountIfAbsent(acc *models.Account) error {
	if acc.InvitedBy != nil && *acc.InvitedBy == acc.UserID {
		acc.InvitedBy = nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(acc).Error
}

func (s *Storage) SetPhoneToken(userID int64, phone string) error {
	res := s.db.Model(&models.Account{}).
		Where("user_id = ?", userID).
		Update("phone", phone)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (s *Storage) ApplyPlayResult(userID int64, delta int, maxPlays int, playedAt time.Time) (int64, error) {
	var acc models.Account
	res := s.db.Model(&acc).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "points"}}}).
		Where("user_id = ? AND plays < ?", userID, maxPlays).
		Updates(map[string]interface{}{
			"points":    gorm.Expr("points + ?", delta),
			"plays":     gorm.Expr("plays + 1"),
			"last_play": playedAt,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.Model(&models.Account{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, storage.ErrAccountNotFound
		}
		return 0, storage.ErrQuotaExhausted
	}
	return acc.Points, nil
}

func (s *Storage) ResetAllPlays() error {
	return s.db.Model(&models.Account{}).
		Where("plays <> ?", 0).
		Update("plays", 0).Error
}

func (s *Storage) AddPoints(userID int64, delta int64) error {
	res := s.db.Model(&models.Account{}).
		Where("user_id = ?", userID).
		Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (s *Storage) SetAccountFields(userID int64, points int64, plays int, blocked bool) error {
	res := s.db.Model(&models.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"points":  points,
			"plays":   plays,
			"blocked": blocked,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (s *Storage) DeleteAccount(userID int64) error {
	return s.db.Delete(&models.Account{}, "user_id = ?", userID).Error
}

func (s *Storage) ListAccounts(keyword string, page, perPage int) ([]models.Account, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}

	query := s.db.Model(&models.Account{})
	if keyword != "" {
		term := "%" + keyword + "%"
		query = query.Where("username ILIKE ? OR phone ILIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []models.Account
	err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (s *Storage) Stats() (*storage.AccountStats, error) {
	var stats storage.AccountStats
	if err := s.db.Model(&models.Account{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Account{}).
		Where("phone IS NOT NULL AND phone <> ''").
		Count(&stats.AuthorizedUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Account{}).
		Where("blocked = ?", true).
		Count(&stats.BlockedUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Account{}).
		Select("COALESCE(SUM(points), 0)").
		Scan(&stats.TotalPoints).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Invite reward grant operations ---

func (s *Storage) Grant(inviterID, inviteeID int64) (*models.InviteRewardGrant, error) {
	var g models.InviteRewardGrant
	err := s.db.First(&g, "inviter_id = ? AND invitee_id = ?", inviterID, inviteeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Storage) CreateGrant(g *models.InviteRewardGrant) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := s.db.Create(g).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrGrantExists
		}
		return err
	}
	return nil
}

func (s *Storage) ClaimGrant(inviterID, inviteeID int64, at time.Time) (bool, error) {
	res := s.db.Model(&models.InviteRewardGrant{}).
		Where("inviter_id = ? AND invitee_id = ? AND granted = ?", inviterID, inviteeID, false).
		Updates(map[string]interface{}{
			"granted":    true,
			"granted_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// --- Game history operations ---

func (s *Storage) AppendHistory(e *models.GameHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return s.db.Create(e).Error
}

func (s *Storage) ListHistory(userID *int64, page, perPage int) ([]models.GameHistoryEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}

	query := s.db.Model(&models.GameHistoryEntry{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.GameHistoryEntry
	err := query.Order("played_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *Storage) HistoryBetween(start, end time.Time) ([]models.GameHistoryEntry, error) {
	var entries []models.GameHistoryEntry
	err := s.db.Where("played_at >= ? AND played_at < ?", start, end).
		Order("played_at ASC").
		Find(&entries).Error
	return entries, err
}

// --- Leaderboard views ---

func (s *Storage) TopByPointsAllTime(limit int) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.Order("points DESC, user_id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

func (s *Storage) TopByPointsBetween(start, end time.Time, limit int) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.Where("last_play >= ? AND last_play < ?", start, end).
		Order("points DESC, user_id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}
