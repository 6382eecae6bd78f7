package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"duel-reward-system/handlers"
	"duel-reward-system/services"
	"duel-reward-system/storage"
	"duel-reward-system/storage/memory"
	"duel-reward-system/storage/postgres"
	"duel-reward-system/telegram"
	"duel-reward-system/utils"
	"duel-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var store storage.Store
	switch backend := getenv("STORAGE_BACKEND", "postgres"); backend {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL environment variable not set")
		}
		pg, err := postgres.Open(dsn)
		if err != nil {
			log.Fatal("failed to open database:", err)
		}
		store = pg
	case "memory":
		store = memory.New()
		log.Println("⚠️  Using in-memory storage — all state is lost on restart")
	default:
		log.Fatalf("unknown STORAGE_BACKEND %q", backend)
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN environment variable not set")
	}
	client := telegram.NewClient(botToken)

	// Pacing between the two dice rolls; presentation only.
	rollDelay := 3 * time.Second
	if raw := os.Getenv("ROLL_DELAY_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			rollDelay = time.Duration(ms) * time.Millisecond
		}
	}

	ledger := services.NewInviteRewardLedger(store, client)
	guard := services.NewSessionGuard(store, ledger, client, rollDelay)
	leaderboard := services.NewLeaderboardService(store)
	reset := services.NewDailyResetService(store)
	dashboard := services.NewDashboardService(store, leaderboard, reset)

	resetCron := getenv("DAILY_RESET_CRON", "0 0 * * *")
	if _, err := reset.StartScheduler(resetCron); err != nil {
		log.Fatal("failed to start daily reset scheduler:", err)
	}

	if utils.R2Configured() {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		audit := services.NewAuditExportService(store)
		exportCron := getenv("AUDIT_EXPORT_CRON", "15 0 * * *")
		if _, err := audit.StartScheduler(exportCron); err != nil {
			log.Fatal("failed to start audit export scheduler:", err)
		}
		log.Printf("✅ Nightly audit export scheduled (%s)", exportCron)
	} else {
		log.Println("⚠️  R2 not configured — audit exports disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := workers.NewBotPoller(client, store, guard, ledger, leaderboard)
	if err := poller.Start(ctx); err != nil {
		log.Fatal("failed to start bot poller:", err)
	}

	app := fiber.New()
	app.Use(cors.New())
	handlers.SetupDashboardRoutes(app, dashboard)

	addr := getenv("HTTP_ADDR", ":8080")
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Dashboard running on %s", addr)
	log.Printf("✅ Daily reset scheduled (%s)", resetCron)

	<-ctx.Done()
	log.Println("Shutting down...")
	_ = app.Shutdown()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
