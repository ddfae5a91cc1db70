// Package monitor watches the approval pipeline for stalled requirements
// and pushes webhook alerts when reviews sit pending past the bottleneck
// threshold.
package monitor

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/store"
)

// DepartmentBacklog is the pending and stalled counts for one department.
type DepartmentBacklog struct {
	Department model.Department    `json:"department,omitempty"`
	Stage      model.ApprovalStage `json:"stage"`
	Pending    int                 `json:"pending"`
	Stalled    int                 `json:"stalled"`
}

// MetricsSnapshot holds a point-in-time view of approval pipeline health.
type MetricsSnapshot struct {
	PendingTotal     int                 `json:"pending_total"`
	StalledTotal     int                 `json:"stalled_total"`
	StalledRate      float64             `json:"stalled_rate"`
	Backlogs         []DepartmentBacklog `json:"backlogs,omitempty"`
	OldestPendingAge time.Duration       `json:"oldest_pending_age"`
	Threshold        time.Duration       `json:"threshold"`
	CollectedAt      time.Time           `json:"collected_at"`
}

// Collector gathers pipeline metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector backed by the given store.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect snapshots the pending approval backlog. A requirement counts as
// stalled once it has been pending longer than the threshold.
func (c *Collector) Collect(ctx context.Context, threshold time.Duration) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		Threshold:   threshold,
		CollectedAt: now,
	}

	pending, err := c.store.ListPendingRequirements(ctx, now)
	if err != nil {
		return nil, eris.Wrap(err, "monitor: list pending requirements")
	}

	cutoff := now.Add(-threshold)

	type key struct {
		stage model.ApprovalStage
		dept  model.Department
	}
	byDept := make(map[key]*DepartmentBacklog)
	var order []key

	snap.PendingTotal = len(pending)
	for _, req := range pending {
		k := key{stage: req.Stage, dept: req.Department}
		backlog, ok := byDept[k]
		if !ok {
			backlog = &DepartmentBacklog{Department: req.Department, Stage: req.Stage}
			byDept[k] = backlog
			order = append(order, k)
		}
		backlog.Pending++

		if age := now.Sub(req.CreatedAt); age > snap.OldestPendingAge {
			snap.OldestPendingAge = age
		}
		if req.CreatedAt.Before(cutoff) {
			snap.StalledTotal++
			backlog.Stalled++
		}
	}

	if snap.PendingTotal > 0 {
		snap.StalledRate = float64(snap.StalledTotal) / float64(snap.PendingTotal)
	}
	for _, k := range order {
		snap.Backlogs = append(snap.Backlogs, *byDept[k])
	}

	return snap, nil
}
