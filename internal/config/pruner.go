package config

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type runHistoryPruner interface {
	PruneRunHistory(ctx context.Context) (int64, error)
}

// StartRunHistoryPruner prunes once immediately and then every interval until
// ctx is done.
func StartRunHistoryPruner(ctx context.Context, pruner runHistoryPruner, interval time.Duration, log *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := pruner.PruneRunHistory(ctx); err != nil {
			log.WithError(err).Error("Failed to prune voice run history")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
