package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ethansammiq/deal-desk-sub004/internal/config"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	st := newTestStore(t)
	collector := NewCollector(st)
	alerter := NewAlerter(config.MonitorConfig{BottleneckThreshold: 3})
	checker := NewChecker(collector, alerter, config.MonitorConfig{
		CheckIntervalSecs: 1,
	}, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	st := newTestStore(t)
	collector := NewCollector(st)
	alerter := NewAlerter(config.MonitorConfig{})

	// Zero interval defaults to 5 minutes.
	checker := NewChecker(collector, alerter, config.MonitorConfig{}, 24*time.Hour)
	assert.NotNil(t, checker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}
