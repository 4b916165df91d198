package utils

import (
	"time"

	"github.com/zelfworks/contentapi/config"
	"github.com/zelfworks/contentapi/models"
)

// StartAICommentCleaner launches a background goroutine that periodically
// deletes delivered AI comment records older than the configured retention
// window. Best-effort; failures are logged and retried next round.
func StartAICommentCleaner(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			db := config.DB()
			c := config.Get()
			cutoff := time.Now().AddDate(0, 0, -c.AICommentRetentionDays)
			res := db.Where("posted = ? AND updated_at < ?", true, cutoff).Delete(&models.AIComment{})
			if res.Error != nil {
				if Sugar != nil {
					Sugar.Warnf("ai comment cleaner delete failed: %v", res.Error)
				}
				continue
			}
			if res.RowsAffected > 0 && Sugar != nil {
				Sugar.Infof("ai comment cleaner pruned %d delivered records", res.RowsAffected)
			}
		}
	}()
}
