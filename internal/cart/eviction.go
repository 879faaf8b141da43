package cart

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartEviction schedules Registry.Evict on the given cron spec (e.g. "@every 10m").
// The returned scheduler is already running; Stop it on shutdown.
func StartEviction(registry *Registry, spec string, idle time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		if removed := registry.Evict(idle); removed > 0 {
			logger.Info("Evicted idle carts",
				zap.Int("removed", removed),
				zap.Int("remaining", registry.Len()),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule cart eviction: %w", err)
	}

	c.Start()
	return c, nil
}
