package model

import "time"

// ApproverLevel is the organizational seniority required to approve a deal.
type ApproverLevel string

const (
	ApproverMD        ApproverLevel = "MD"
	ApproverExecutive ApproverLevel = "Executive"
)

// Department identifies a reviewing department in the approval pipeline.
type Department string

const (
	DeptFinance   Department = "finance"
	DeptTrading   Department = "trading"
	DeptCreative  Department = "creative"
	DeptProduct   Department = "product"
	DeptSolutions Department = "solutions"
	DeptMarketing Department = "marketing"
)

// ApprovalStage names a phase of the approval pipeline.
type ApprovalStage string

const (
	StageDepartmentReview ApprovalStage = "department_review"
	StageBusinessApproval ApprovalStage = "business_approval"
)

// ApprovalStatus is the state of a single approval requirement.
type ApprovalStatus string

const (
	ApprovalPending           ApprovalStatus = "pending"
	ApprovalApproved          ApprovalStatus = "approved"
	ApprovalRevisionRequested ApprovalStatus = "revision_requested"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRevisionRequested:
		return true
	}
	return false
}

// ApprovalRequirement is one (stage, department) review a deal must pass.
// Requirements are generated at submission time and mutated only by
// reviewer decisions.
type ApprovalRequirement struct {
	ID         string         `json:"id"`
	DealID     string         `json:"deal_id"`
	Stage      ApprovalStage  `json:"stage"`
	Department Department     `json:"department,omitempty"`
	Status     ApprovalStatus `json:"status"`
	DependsOn  []string       `json:"depends_on,omitempty"`
	Reviewer   string         `json:"reviewer,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`
}

// Decided reports whether the requirement has reached a terminal state.
func (r ApprovalRequirement) Decided() bool {
	return r.Status != ApprovalPending
}

// ApprovalRule is a static catalog entry describing one approver level:
// who approves, what it covers, and how long it typically takes.
type ApprovalRule struct {
	Level         ApproverLevel `json:"level" yaml:"level"`
	Title         string        `json:"title" yaml:"title"`
	Description   string        `json:"description" yaml:"description"`
	EstimatedDays string        `json:"estimated_days" yaml:"estimated_days"`
}
