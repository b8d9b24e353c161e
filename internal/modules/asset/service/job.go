package service

import (
	"context"
	"time"

	"anoa.com/isfportal/pkg/logger"
	"github.com/robfig/cron/v3"
)

// ScheduleCleanup registers the orphan sweep on c using a standard cron
// spec or a descriptor such as "@every 12h".
func ScheduleCleanup(c *cron.Cron, spec string, svc AssetService) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		logger.Info().Msg("running orphan asset cleanup")
		removed, err := svc.CleanupOrphans(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("orphan asset cleanup failed")
			return
		}
		logger.Info().Int("removed", removed).Msg("orphan asset cleanup completed")
	})
}
