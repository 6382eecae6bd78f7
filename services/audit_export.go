package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"

	"duel-reward-system/models"
	"duel-reward-system/storage"
	"duel-reward-system/utils"
)

// AuditExportService ships the previous day's game history to object
// storage as CSV, so point deltas stay auditable outside the database.
type AuditExportService struct {
	store storage.Store
}

func NewAuditExportService(store storage.Store) *AuditExportService {
	return &AuditExportService{store: store}
}

// ExportDay uploads all history entries for the calendar day containing t.
func (s *AuditExportService) ExportDay(t time.Time) (string, error) {
	start, end := DayWindow(t)
	entries, err := s.store.HistoryBetween(start, end)
	if err != nil {
		return "", fmt.Errorf("failed to load history for export: %w", err)
	}

	data, err := encodeHistoryCSV(entries)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("audit/game-history-%s.csv", start.Format("2006-01-02"))
	url, err := utils.UploadBytesToR2(key, "text/csv", data)
	if err != nil {
		return "", fmt.Errorf("failed to upload audit export: %w", err)
	}
	return url, nil
}

// Run exports yesterday's history.
func (s *AuditExportService) Run() error {
	url, err := s.ExportDay(time.Now().AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	log.Printf("📦 Audit export uploaded: %s", url)
	return nil
}

// StartScheduler runs the export shortly after the daily boundary.
func (s *AuditExportService) StartScheduler(cronExpr string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create export scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			if err := s.Run(); err != nil {
				log.Printf("[Scheduler] Audit export failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule audit export: %w", err)
	}

	sched.Start()
	return sched, nil
}

func encodeHistoryCSV(entries []models.GameHistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "user_id", "played_at", "player_roll", "bot_roll", "outcome", "point_delta"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, e := range entries {
		record := []string{
			e.ID,
			strconv.FormatInt(e.UserID, 10),
			e.PlayedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(e.PlayerRoll),
			strconv.Itoa(e.BotRoll),
			string(e.Outcome),
			strconv.Itoa(e.PointDelta),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
