package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ethansammiq/deal-desk-sub004/internal/config"
)

// Checker runs periodic bottleneck checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitorConfig
	threshold time.Duration
}

// NewChecker creates a background bottleneck checker. threshold is the
// pending age past which a requirement counts as stalled.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitorConfig, threshold time.Duration) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		threshold: threshold,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitor.checker"))
	log.Info("starting bottleneck checker",
		zap.Duration("interval", interval),
		zap.Duration("threshold", c.threshold),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("bottleneck checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.threshold)
	if err != nil {
		log.Error("monitor: failed to collect metrics", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitor: no alerts triggered")
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitor: bottleneck check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}
