package model

import "time"

// ActivityType classifies entries in a deal's history feed.
type ActivityType string

const (
	ActivityCreated           ActivityType = "created"
	ActivityUpdated           ActivityType = "updated"
	ActivitySubmitted         ActivityType = "submitted"
	ActivityStatusChanged     ActivityType = "status_changed"
	ActivityApprovalDecision  ActivityType = "approval_decision"
	ActivityCommentAdded      ActivityType = "comment_added"
	ActivityAssessmentCreated ActivityType = "assessment_created"
)

// ActivityEvent is one immutable entry in a deal's audit history.
type ActivityEvent struct {
	ID        string         `json:"id"`
	DealID    string         `json:"deal_id"`
	Type      ActivityType   `json:"type"`
	ActorID   string         `json:"actor_id"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Comment is a discussion entry attached to a deal.
type Comment struct {
	ID        string    `json:"id"`
	DealID    string    `json:"deal_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
