// cmd/notice.go
package cmd

import (
	"context"
	"fmt"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/logger"
)

// startNotifier is the part of the mailer the daemon uses to announce itself.
type startNotifier interface {
	SendNotification(ctx context.Context, message string) error
}

func startNotice(cfg config.ScheduleConfig) string {
	weekends := "yes"
	if !cfg.Weekends() {
		weekends = "no"
	}
	return fmt.Sprintf("Web scraper scheduler started.\n\nDaily run at %s, then every %d minutes.\nWeekend runs: %s.",
		cfg.StartTime, cfg.IntervalMinutes, weekends)
}

// announceStart mails the schedule notice. Failure is logged only.
func announceStart(ctx context.Context, n startNotifier, cfg config.ScheduleConfig, log logger.Logger) {
	if err := n.SendNotification(ctx, startNotice(cfg)); err != nil {
		log.Warn("Failed to send scheduler start notice", logger.Error(err))
	}
}
