// services/dashboard.go
package services

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"duel-reward-system/models"
	"duel-reward-system/storage"
)

// DashboardService exposes the administrative HTTP surface: account
// listing and edits, history, stats, leaderboards and the manual reset
// trigger. Plain CRUD over the store; the game invariants live in the
// storage layer and the game services, not here.
type DashboardService struct {
	store       storage.Store
	leaderboard *LeaderboardService
	reset       *DailyResetService
}

func NewDashboardService(store storage.Store, leaderboard *LeaderboardService, reset *DailyResetService) *DashboardService {
	return &DashboardService{
		store:       store,
		leaderboard: leaderboard,
		reset:       reset,
	}
}

// accountRow augments an account with its inviter's handle for listing.
type accountRow struct {
	models.Account
	InviterUsername *string `json:"inviter_username,omitempty"`
}

// ListAccounts returns a page of accounts, optionally filtered by keyword
// over username and phone.
func (s *DashboardService) ListAccounts(c *fiber.Ctx) error {
	keyword := c.Query("keyword", "")
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 50)

	accounts, total, err := s.store.ListAccounts(keyword, page, perPage)
	if err != nil {
		log.Printf("DB Error listing accounts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list accounts"})
	}

	// Resolve inviter usernames once per distinct inviter.
	inviterNames := make(map[int64]*string)
	rows := make([]accountRow, len(accounts))
	for i, acc := range accounts {
		row := accountRow{Account: acc}
		if acc.InvitedBy != nil {
			name, ok := inviterNames[*acc.InvitedBy]
			if !ok {
				if inviter, err := s.store.Account(*acc.InvitedBy); err == nil {
					name = inviter.Username
				}
				inviterNames[*acc.InvitedBy] = name
			}
			row.InviterUsername = name
		}
		rows[i] = row
	}

	return c.JSON(fiber.Map{
		"accounts": rows,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// UpdateAccount assigns points, plays and block status directly.
func (s *DashboardService) UpdateAccount(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req struct {
		Points  int64 `json:"points"`
		Plays   int   `json:"plays"`
		Blocked bool  `json:"blocked"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.store.SetAccountFields(userID, req.Points, req.Plays, req.Blocked); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		log.Printf("DB Error updating account %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update account"})
	}

	return c.JSON(fiber.Map{"message": "OK"})
}

// DeleteAccount removes an account entirely.
func (s *DashboardService) DeleteAccount(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	if err := s.store.DeleteAccount(userID); err != nil {
		log.Printf("DB Error deleting account %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete account"})
	}

	return c.JSON(fiber.Map{"message": "OK"})
}

// ListHistory pages the game audit log, optionally for a single user.
func (s *DashboardService) ListHistory(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 50)

	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user_id filter"})
		}
		userID = &id
	}

	entries, total, err := s.store.ListHistory(userID, page, perPage)
	if err != nil {
		log.Printf("DB Error listing history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list history"})
	}

	return c.JSON(fiber.Map{
		"entries":  entries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// Stats returns the aggregate account counters.
func (s *DashboardService) Stats(c *fiber.Ctx) error {
	stats, err := s.store.Stats()
	if err != nil {
		log.Printf("DB Error computing stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute stats"})
	}
	return c.JSON(stats)
}

// LeaderboardAllTime returns the top accounts by points.
func (s *DashboardService) LeaderboardAllTime(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	accounts, err := s.leaderboard.TopAllTime(limit)
	if err != nil {
		log.Printf("DB Error fetching all-time leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}
	return c.JSON(accounts)
}

// LeaderboardToday returns the top accounts that played today.
func (s *DashboardService) LeaderboardToday(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	accounts, err := s.leaderboard.TopToday(limit)
	if err != nil {
		log.Printf("DB Error fetching today leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}
	return c.JSON(accounts)
}

// TriggerDailyReset is the manual scheduler trigger.
func (s *DashboardService) TriggerDailyReset(c *fiber.Ctx) error {
	if err := s.reset.Run(); err != nil {
		log.Printf("Manual daily reset failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Reset failed"})
	}
	return c.JSON(fiber.Map{"message": "Play counters reset"})
}
