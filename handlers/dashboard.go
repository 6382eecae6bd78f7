package handlers

import (
	"github.com/gofiber/fiber/v2"

	"duel-reward-system/services"
)

// SetupDashboardRoutes mounts the administrative dashboard endpoints.
func SetupDashboardRoutes(app *fiber.App, dashboard *services.DashboardService) {
	app.Get("/accounts", dashboard.ListAccounts)
	app.Patch("/accounts/:id", dashboard.UpdateAccount)
	app.Delete("/accounts/:id", dashboard.DeleteAccount)

	app.Get("/history", dashboard.ListHistory)
	app.Get("/stats", dashboard.Stats)

	app.Get("/leaderboard/alltime", dashboard.LeaderboardAllTime)
	app.Get("/leaderboard/today", dashboard.LeaderboardToday)

	app.Post("/admin/reset-plays", dashboard.TriggerDailyReset)
}
