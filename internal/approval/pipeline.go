package approval

import (
	"time"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// DefaultBottleneckThreshold is how long a requirement may sit pending
// before it is flagged as a bottleneck.
const DefaultBottleneckThreshold = 24 * time.Hour

// StageProgress summarizes completion of one pipeline stage.
type StageProgress struct {
	Stage           model.ApprovalStage `json:"stage"`
	Completed       int                 `json:"completed"`
	Total           int                 `json:"total"`
	PercentComplete float64             `json:"percent_complete"`
}

// Bottleneck is a pending requirement older than the staleness threshold.
type Bottleneck struct {
	RequirementID string              `json:"requirement_id"`
	Stage         model.ApprovalStage `json:"stage"`
	Department    model.Department    `json:"department,omitempty"`
	PendingFor    time.Duration       `json:"pending_for"`
}

// PipelineStatus is the aggregated view of a deal's approval pipeline.
type PipelineStatus struct {
	Overall         model.ApprovalStatus `json:"overall"`
	Stages          []StageProgress      `json:"stages"`
	Completed       int                  `json:"completed"`
	Total           int                  `json:"total"`
	PercentComplete float64              `json:"percent_complete"`
	Bottlenecks     []Bottleneck         `json:"bottlenecks,omitempty"`
}

// AggregatePipelineStatus folds approval requirements into per-stage
// progress, an overall derived status, and a bottleneck list using the
// default threshold and the current time.
func AggregatePipelineStatus(reqs []model.ApprovalRequirement) PipelineStatus {
	return AggregatePipelineStatusAt(reqs, time.Now().UTC(), DefaultBottleneckThreshold)
}

// AggregatePipelineStatusAt is AggregatePipelineStatus with an explicit
// clock and threshold. Overall status is "approved" only when every
// requirement is approved, "revision_requested" when any requirement is
// flagged, and "pending" otherwise (including the empty pipeline).
func AggregatePipelineStatusAt(reqs []model.ApprovalRequirement, now time.Time, threshold time.Duration) PipelineStatus {
	status := PipelineStatus{Overall: model.ApprovalPending, Total: len(reqs)}

	stageIndex := make(map[model.ApprovalStage]int)
	anyRevision := false

	for _, r := range reqs {
		i, ok := stageIndex[r.Stage]
		if !ok {
			i = len(status.Stages)
			stageIndex[r.Stage] = i
			status.Stages = append(status.Stages, StageProgress{Stage: r.Stage})
		}
		status.Stages[i].Total++

		switch r.Status {
		case model.ApprovalApproved:
			status.Stages[i].Completed++
			status.Completed++
		case model.ApprovalRevisionRequested:
			anyRevision = true
		case model.ApprovalPending:
			if age := now.Sub(r.CreatedAt); age > threshold {
				status.Bottlenecks = append(status.Bottlenecks, Bottleneck{
					RequirementID: r.ID,
					Stage:         r.Stage,
					Department:    r.Department,
					PendingFor:    age,
				})
			}
		}
	}

	for i := range status.Stages {
		s := &status.Stages[i]
		if s.Total > 0 {
			s.PercentComplete = round1(float64(s.Completed) / float64(s.Total) * 100)
		}
	}
	if status.Total > 0 {
		status.PercentComplete = round1(float64(status.Completed) / float64(status.Total) * 100)
	}

	switch {
	case anyRevision:
		status.Overall = model.ApprovalRevisionRequested
	case status.Total > 0 && status.Completed == status.Total:
		status.Overall = model.ApprovalApproved
	default:
		status.Overall = model.ApprovalPending
	}

	return status
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
