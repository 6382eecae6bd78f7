// services/scheduler.go
package services

import (
	"fmt"
	"log"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler runs the quota reset on a cron boundary (default local
// midnight, e.g. "0 0 * * *").
func (s *DailyResetService) StartScheduler(cronExpr string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create reset scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			if err := s.Run(); err != nil {
				log.Printf("[Scheduler] Daily reset failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule daily reset: %w", err)
	}

	sched.Start()
	return sched, nil
}
